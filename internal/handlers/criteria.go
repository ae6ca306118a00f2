package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"helplink/internal/pipeline"

	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

// parseCriteria reads from, to, status and institution from the query
// string. status may repeat or hold a comma separated list.
func parseCriteria(c *gin.Context) (pipeline.Criteria, error) {
	var criteria pipeline.Criteria

	if from := strings.TrimSpace(c.Query("from")); from != "" {
		t, err := time.Parse(dateLayout, from)
		if err != nil {
			return criteria, fmt.Errorf("invalid from date %q, expected YYYY-MM-DD", from)
		}
		criteria.Start = t
	}

	if to := strings.TrimSpace(c.Query("to")); to != "" {
		t, err := time.Parse(dateLayout, to)
		if err != nil {
			return criteria, fmt.Errorf("invalid to date %q, expected YYYY-MM-DD", to)
		}
		criteria.End = t
	}

	for _, raw := range c.QueryArray("status") {
		for _, status := range strings.Split(raw, ",") {
			if status = strings.TrimSpace(status); status != "" {
				criteria.Statuses = append(criteria.Statuses, status)
			}
		}
	}

	if inst := strings.TrimSpace(c.Query("institution")); inst != "" {
		id, err := strconv.ParseInt(inst, 10, 64)
		if err != nil {
			return criteria, fmt.Errorf("invalid institution id %q", inst)
		}
		criteria.InstitutionID = &id
	}

	return criteria, nil
}
