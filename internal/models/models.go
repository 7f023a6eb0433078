package models

import "time"

// Role is the fixed set of user roles. Rights for each role live in the
// auth package; there is no role hierarchy.
type Role string

const (
	RoleUser       Role = "USER"
	RoleAdmin      Role = "ADMIN"
	RoleFinanceiro Role = "FINANCEIRO"
	RoleMarketing  Role = "MARKETING"
)

// TokenKind distinguishes issued credentials. ACCESS tokens are stateless
// and never stored; the other kinds are persisted until consumed.
type TokenKind string

const (
	TokenAccess        TokenKind = "ACCESS"
	TokenRefresh       TokenKind = "REFRESH"
	TokenResetPassword TokenKind = "RESET_PASSWORD"
	TokenVerifyEmail   TokenKind = "VERIFY_EMAIL"
)

type User struct {
	ID              string    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email           string    `gorm:"uniqueIndex;not null" json:"email"`
	CNPJ            string    `gorm:"uniqueIndex;not null;size:14" json:"cnpj"`
	Name            string    `json:"name"`
	PasswordHash    string    `gorm:"not null" json:"-"`
	Role            Role      `gorm:"not null;default:USER" json:"role"`
	IsEmailVerified bool      `gorm:"not null;default:false" json:"is_email_verified"`
	Tokens          []Token   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Clients         []Client  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Deals           []Deal    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Notes           []Note    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Token is one persisted credential row. REFRESH rows are deleted on
// rotation/logout; RESET_PASSWORD and VERIFY_EMAIL rows are bulk-deleted
// once any one of them is used.
type Token struct {
	ID          string    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Value       string    `gorm:"uniqueIndex;not null;size:512" json:"token"`
	UserID      string    `gorm:"type:uuid;index;not null" json:"user_id"`
	Kind        TokenKind `gorm:"index;not null" json:"kind"`
	Expires     time.Time `gorm:"not null" json:"expires"`
	Blacklisted bool      `gorm:"not null;default:false" json:"blacklisted"`
	CreatedAt   time.Time `json:"created_at"`
}

type ClientStatus string

const (
	ClientLead     ClientStatus = "LEAD"
	ClientProspect ClientStatus = "PROSPECT"
	ClientActive   ClientStatus = "ACTIVE"
	ClientInactive ClientStatus = "INACTIVE"
)

type Client struct {
	ID        string       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string       `gorm:"not null" json:"name"`
	Email     string       `gorm:"not null" json:"email"`
	Phone     string       `json:"phone,omitempty"`
	Company   string       `json:"company,omitempty"`
	Status    ClientStatus `gorm:"not null;default:LEAD" json:"status"`
	UserID    string       `gorm:"type:uuid;index;not null" json:"user_id"`
	Deals     []Deal       `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

type DealStage string

const (
	DealInitialContact DealStage = "INITIAL_CONTACT"
	DealProposal       DealStage = "PROPOSAL"
	DealNegotiation    DealStage = "NEGOTIATION"
	DealClosedWon      DealStage = "CLOSED_WON"
	DealClosedLost     DealStage = "CLOSED_LOST"
)

type Deal struct {
	ID        string     `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Title     string     `gorm:"not null" json:"title"`
	Value     float64    `gorm:"not null" json:"value"`
	Stage     DealStage  `gorm:"not null;default:INITIAL_CONTACT" json:"stage"`
	ClientID  string     `gorm:"type:uuid;index;not null" json:"client_id"`
	UserID    string     `gorm:"type:uuid;index;not null" json:"user_id"`
	CloseDate *time.Time `json:"close_date,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type Note struct {
	ID        string    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Content   string    `gorm:"not null" json:"content"`
	UserID    string    `gorm:"type:uuid;index;not null" json:"user_id"`
	ClientID  *string   `gorm:"type:uuid;index" json:"client_id,omitempty"`
	DealID    *string   `gorm:"type:uuid;index" json:"deal_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type AuditLog struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    *string   `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Action    string    `gorm:"not null" json:"action"`
	Metadata  JSONB     `gorm:"type:jsonb;default:'{}'::jsonb" json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
}
