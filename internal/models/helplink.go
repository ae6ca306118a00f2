package models

import "strings"

// Logical table names, used when reporting tables that could not be read.
const (
	TableUsers         = "users"
	TableInstitutions  = "institutions"
	TableCategories    = "categories"
	TableItems         = "items"
	TableDonations     = "donations"
	TableDonationItems = "donation_items"
	TableImpacts       = "impacts"
)

// Donation status labels seen in the HelpLink store. The set is open:
// variants of the dashboard use different subsets.
const (
	StatusOpen       = "ABERTA"
	StatusScheduled  = "AGENDADA"
	StatusInProgress = "EM_ANDAMENTO"
	StatusCompleted  = "CONCLUIDA"
	StatusCancelled  = "CANCELADA"
)

type ItemCondition string

const (
	ConditionNew     ItemCondition = "NEW"
	ConditionGood    ItemCondition = "GOOD"
	ConditionRegular ItemCondition = "REGULAR"
)

// Normalize maps the store's Portuguese labels onto the canonical enum.
// Unrecognised values are returned upper-cased and trimmed.
func (c ItemCondition) Normalize() ItemCondition {
	v := strings.ToUpper(strings.TrimSpace(string(c)))
	switch v {
	case "NOVO", "NEW":
		return ConditionNew
	case "BOM", "GOOD", "SEMINOVO":
		return ConditionGood
	case "REGULAR", "USADO":
		return ConditionRegular
	}
	return ItemCondition(v)
}

type User struct {
	ID           int64     `gorm:"column:id_usuario;primaryKey" json:"id"`
	Name         string    `gorm:"column:nome;size:120" json:"name"`
	PasswordHash string    `gorm:"column:senha;size:255" json:"-"`
	RegisteredAt Timestamp `gorm:"column:dt_cadastro" json:"registered_at"`
	Email        string    `gorm:"column:email;size:120" json:"email"`
	Phone        string    `gorm:"column:telefone;size:20" json:"phone"`
	AddressID    *int64    `gorm:"column:id_endereco" json:"address_id"`
}

func (User) TableName() string { return "tb_helplink_usuario" }

type Institution struct {
	ID                 int64  `gorm:"column:id_instituicao;primaryKey" json:"id"`
	Name               string `gorm:"column:nome;size:120" json:"name"`
	Email              string `gorm:"column:email;size:120" json:"email"`
	Phone              string `gorm:"column:telefone;size:20" json:"phone"`
	AddressID          *int64 `gorm:"column:id_endereco" json:"address_id"`
	AcceptedCategories string `gorm:"column:categorias_aceitas;size:255" json:"accepted_categories"`
	TaxID              string `gorm:"column:cnpj;size:20" json:"tax_id"`
}

func (Institution) TableName() string { return "tb_helplink_instituicao" }

type Category struct {
	ID          int64  `gorm:"column:id_categoria;primaryKey" json:"id"`
	Name        string `gorm:"column:nome;size:80" json:"name"`
	Description string `gorm:"column:descricao;size:255" json:"description"`
}

func (Category) TableName() string { return "tb_helplink_categoria" }

type Item struct {
	ID           int64         `gorm:"column:id_item;primaryKey" json:"id"`
	Title        string        `gorm:"column:titulo;size:120" json:"title"`
	PhotoURL     string        `gorm:"column:foto_url;size:500" json:"photo_url"`
	Condition    ItemCondition `gorm:"column:estado_conservacao;size:20" json:"condition"`
	RegisteredAt Timestamp     `gorm:"column:dt_registro" json:"registered_at"`
	Description  string        `gorm:"column:descricao;size:500" json:"description"`
	DonationID   *int64        `gorm:"column:id_doacao;index" json:"donation_id"`
	UserID       int64         `gorm:"column:id_usuario" json:"user_id"`
	CategoryID   int64         `gorm:"column:id_categoria" json:"category_id"`
}

func (Item) TableName() string { return "tb_helplink_item" }

type Donation struct {
	ID            int64     `gorm:"column:id_doacao;primaryKey" json:"id"`
	Status        string    `gorm:"column:status;size:30" json:"status"`
	RequestedAt   Timestamp `gorm:"column:dt_solicitacao;index" json:"requested_at"`
	ConfirmedAt   Timestamp `gorm:"column:dt_confirmacao" json:"confirmed_at"`
	UserID        int64     `gorm:"column:id_usuario" json:"user_id"`
	InstitutionID int64     `gorm:"column:id_instituicao;index" json:"institution_id"`
}

func (Donation) TableName() string { return "tb_helplink_doacao" }

type DonationItem struct {
	ID         int64  `gorm:"column:id_doacao_item;primaryKey" json:"id"`
	Quantity   int    `gorm:"column:qtde" json:"quantity"`
	DonationID int64  `gorm:"column:id_doacao;index" json:"donation_id"`
	ItemID     *int64 `gorm:"column:id_item" json:"item_id"`
	// ItemTitle is filled from the item table on read.
	ItemTitle string `gorm:"column:item_title;->;-:migration" json:"item_title,omitempty"`
}

func (DonationItem) TableName() string { return "tb_helplink_doacao_item" }

type Impact struct {
	ID         int64   `gorm:"column:id_impacto;primaryKey" json:"id"`
	DonationID int64   `gorm:"column:id_doacao;index" json:"donation_id"`
	Score      float64 `gorm:"column:pontuacao" json:"score"`
	Note       string  `gorm:"column:observacao;size:500" json:"note"`
}

func (Impact) TableName() string { return "tb_helplink_impacto" }

// Migratable lists the domain models created by auto-migration.
func Migratable() []interface{} {
	return []interface{}{
		&Category{},
		&User{},
		&Institution{},
		&Donation{},
		&Item{},
		&DonationItem{},
		&Impact{},
		&ExportRecord{},
	}
}
