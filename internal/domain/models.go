package domain

import (
	"encoding/json"
	"time"
)

type Role struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Permissions []string  `json:"permissions"`
	IsSystem    bool      `json:"is_system"`
	Version     int64     `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type RoleCreateRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

type RoleUpdateRequest struct {
	Name        *string   `json:"name,omitempty"`
	Description *string   `json:"description,omitempty"`
	Permissions *[]string `json:"permissions,omitempty"`
	Version     int64     `json:"version,omitempty"`
}

type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	RoleID      string    `json:"role_id"`
	IsActive    bool      `json:"is_active"`
	Version     int64     `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UserView is a User with its role name resolved for listing.
type UserView struct {
	User
	RoleName string `json:"role_name"`
}

type UserCreateRequest struct {
	Email           string `json:"email"`
	DisplayName     string `json:"display_name"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	RoleID          string `json:"role_id"`
	IsActive        *bool  `json:"is_active,omitempty"`
}

type UserUpdateRequest struct {
	DisplayName *string `json:"display_name,omitempty"`
	RoleID      *string `json:"role_id,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
	Version     int64   `json:"version,omitempty"`
}

// Credential is the identity-provider record for an email; kept apart from
// User so that a sign-in can exist before its User record does.
type Credential struct {
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string   `json:"access_token"`
	ExpiresAt   string   `json:"expires_at"`
	User        User     `json:"user"`
	Permissions []string `json:"permissions"`
	LandingPath string   `json:"landing_path"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

type AreaAccess struct {
	Permission string `json:"permission"`
	Path       string `json:"path"`
	Allowed    bool   `json:"allowed"`
}

type SessionResponse struct {
	User        User         `json:"user"`
	RoleName    string       `json:"role_name"`
	Permissions []string     `json:"permissions"`
	LandingPath string       `json:"landing_path"`
	Areas       []AreaAccess `json:"areas"`
}

// Actor is the identity a mutation is attributed to.
type Actor struct {
	UserID string
	Name   string
	Email  string
}

type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	Version     int64     `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CategoryCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active,omitempty"`
}

type CategoryUpdateRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
	Version     int64   `json:"version,omitempty"`
}

type Product struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	SKU        string    `json:"sku"`
	CategoryID string    `json:"category_id"`
	Price      int64     `json:"price"`
	Cost       int64     `json:"cost"`
	Stock      int       `json:"stock"`
	MinStock   int       `json:"min_stock"`
	Unit       string    `json:"unit"`
	IsActive   bool      `json:"is_active"`
	Version    int64     `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type ProductCreateRequest struct {
	Name       string `json:"name"`
	CategoryID string `json:"category_id"`
	Price      Money  `json:"price"`
	Cost       Money  `json:"cost"`
	Stock      int    `json:"stock"`
	MinStock   int    `json:"min_stock"`
	Unit       string `json:"unit"`
	IsActive   *bool  `json:"is_active,omitempty"`
}

type ProductUpdateRequest struct {
	Name       *string `json:"name,omitempty"`
	CategoryID *string `json:"category_id,omitempty"`
	Price      *Money  `json:"price,omitempty"`
	Cost       *Money  `json:"cost,omitempty"`
	MinStock   *int    `json:"min_stock,omitempty"`
	Unit       *string `json:"unit,omitempty"`
	IsActive   *bool   `json:"is_active,omitempty"`
	Version    int64   `json:"version,omitempty"`
}

type SKUPreviewResponse struct {
	CategoryID string `json:"category_id"`
	SKU        string `json:"sku"`
}

type SaleItem struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	UnitCost    int64  `json:"unit_cost"`
	Subtotal    int64  `json:"subtotal"`
}

type Sale struct {
	ID            string     `json:"id"`
	Items         []SaleItem `json:"items"`
	Subtotal      int64      `json:"subtotal"`
	Discount      int64      `json:"discount"`
	Total         int64      `json:"total"`
	PaymentMethod string     `json:"payment_method"`
	AmountPaid    int64      `json:"amount_paid"`
	Change        int64      `json:"change"`
	CashierID     string     `json:"cashier_id"`
	CashierName   string     `json:"cashier_name"`
	Version       int64      `json:"version"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type SaleLineRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type SaleRequest struct {
	Items         []SaleLineRequest `json:"items"`
	Discount      Money             `json:"discount"`
	PaymentMethod string            `json:"payment_method"`
	AmountPaid    Money             `json:"amount_paid"`
	Version       int64             `json:"version,omitempty"`
}

type ReceiptResponse struct {
	SaleID      string `json:"sale_id"`
	PreviewText string `json:"preview_text"`
}

type AgentTransaction struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	ProfitCategory string    `json:"profit_category"`
	AccountName    string    `json:"account_name,omitempty"`
	AccountNumber  string    `json:"account_number,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	Amount         int64     `json:"amount"`
	AdminFee       int64     `json:"admin_fee"`
	Profit         int64     `json:"profit"`
	BalanceAfter   *int64    `json:"balance_after,omitempty"`
	CustomerName   string    `json:"customer_name,omitempty"`
	CustomerPhone  string    `json:"customer_phone,omitempty"`
	Note           string    `json:"note,omitempty"`
	OperatorID     string    `json:"operator_id"`
	OperatorName   string    `json:"operator_name"`
	Version        int64     `json:"version"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type AgentTransactionRequest struct {
	Type          string `json:"type"`
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
	Phone         string `json:"phone"`
	Amount        Money  `json:"amount"`
	AdminFee      Money  `json:"admin_fee"`
	Profit        *Money `json:"profit,omitempty"`
	BalanceAfter  *Money `json:"balance_after,omitempty"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	Note          string `json:"note"`
	Version       int64  `json:"version,omitempty"`
}

type SavedAccount struct {
	ID            string    `json:"id"`
	AccountName   string    `json:"account_name"`
	AccountNumber string    `json:"account_number"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type AuditLog struct {
	ID         string          `json:"id"`
	Module     string          `json:"module"`
	Action     string          `json:"action"`
	TargetID   string          `json:"target_id"`
	TargetName string          `json:"target_name"`
	UserID     string          `json:"user_id"`
	UserName   string          `json:"user_name"`
	Before     json.RawMessage `json:"before"`
	After      json.RawMessage `json:"after"`
	CreatedAt  time.Time       `json:"created_at"`
}

// AuditLogView is an AuditLog with the top-level fields that changed.
type AuditLogView struct {
	AuditLog
	ChangedFields []string `json:"changed_fields"`
}

// TimeRange bounds a range query; both ends are inclusive.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// Includes treats a zero bound as open.
func (r TimeRange) Includes(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

type SaleFilter struct {
	TimeRange
	CashierID     string
	PaymentMethod string
}

type AgentTransactionFilter struct {
	TimeRange
	Type           string
	ProfitCategory string
	OperatorID     string
}

type AuditLogFilter struct {
	TimeRange
	Module string
	Action string
	UserID string
	Limit  int
}

// StockDelta is a signed stock change for one product.
type StockDelta struct {
	ProductID string
	Delta     int
}

type Totals struct {
	Omzet            int64            `json:"omzet"`
	Cost             int64            `json:"cost"`
	GrossMargin      int64            `json:"gross_margin"`
	AgentProfit      map[string]int64 `json:"agent_profit"`
	AgentProfitTotal int64            `json:"agent_profit_total"`
	TotalProfit      int64            `json:"total_profit"`
	SaleCount        int              `json:"sale_count"`
	ItemCount        int              `json:"item_count"`
	AgentCount       int              `json:"agent_count"`
}

type DailyRow struct {
	Date   string `json:"date"`
	Totals Totals `json:"totals"`
}

type CategorySlice struct {
	CategoryID string `json:"category_id"`
	Omzet      int64  `json:"omzet"`
	ItemCount  int    `json:"item_count"`
}

type PeriodReport struct {
	Label             string             `json:"label"`
	From              time.Time          `json:"from"`
	To                time.Time          `json:"to"`
	Totals            Totals             `json:"totals"`
	Daily             []DailyRow         `json:"daily"`
	Category          *CategorySlice     `json:"category,omitempty"`
	Sales             []Sale             `json:"-"`
	AgentTransactions []AgentTransaction `json:"-"`
}

type ShiftReport struct {
	Date    string    `json:"date"`
	Shift   string    `json:"shift"`
	Current bool      `json:"current"`
	From    time.Time `json:"from"`
	To      time.Time `json:"to"`
	Totals  Totals    `json:"totals"`
}

type DashboardResponse struct {
	Today        Totals      `json:"today"`
	CurrentShift ShiftReport `json:"current_shift"`
	LowStock     []Product   `json:"low_stock"`
}

const (
	PaymentCash     = "cash"
	PaymentTransfer = "transfer"
	PaymentQRIS     = "qris"
)

const (
	AgentTransfer       = "transfer"
	AgentCashDeposit    = "cash_deposit"
	AgentCashWithdrawal = "cash_withdrawal"
	AgentPayment        = "payment"
	AgentTopup          = "topup"
	AgentBillPayment    = "bill_payment"
	AgentFuelTopup      = "fuel_topup"
)

// Profit categories: the three business lines tracked under agent banking.
const (
	ProfitBrilink     = "brilink"
	ProfitBillPayment = "bill_payment"
	ProfitFuel        = "fuel"
)

const (
	AuditCreate = "create"
	AuditUpdate = "update"
	AuditDelete = "delete"
)

const (
	ModuleRoles        = "roles"
	ModuleUsers        = "users"
	ModuleCategories   = "categories"
	ModuleProducts     = "products"
	ModuleSales        = "sales"
	ModuleBrilink      = "brilink"
	ModuleSavedAccount = "saved_accounts"
)

const UnknownRoleName = "Unknown"

// ProfitCategories lists the agent-banking business lines in display order.
func ProfitCategories() []string {
	return []string{ProfitBrilink, ProfitBillPayment, ProfitFuel}
}

// ProfitCategoryFor maps an agent transaction type to its business line.
// Unknown types fall back to the primary line.
func ProfitCategoryFor(txType string) string {
	switch txType {
	case AgentBillPayment:
		return ProfitBillPayment
	case AgentFuelTopup:
		return ProfitFuel
	default:
		return ProfitBrilink
	}
}

func IsAgentTransactionType(txType string) bool {
	switch txType {
	case AgentTransfer, AgentCashDeposit, AgentCashWithdrawal, AgentPayment, AgentTopup, AgentBillPayment, AgentFuelTopup:
		return true
	default:
		return false
	}
}

func IsPaymentMethod(method string) bool {
	switch method {
	case PaymentCash, PaymentTransfer, PaymentQRIS:
		return true
	default:
		return false
	}
}
