package game

import (
	"time"

	"shopsim/internal/catalog"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusAccepted   OrderStatus = "accepted"
	StatusInProgress OrderStatus = "in_progress"
	StatusCompleted  OrderStatus = "completed"
	StatusFailed     OrderStatus = "failed"
	StatusCancelled  OrderStatus = "cancelled"
	StatusExpired    OrderStatus = "expired"
)

func (s OrderStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusExpired:
		return true
	default:
		return false
	}
}

func (s OrderStatus) Active() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusInProgress:
		return true
	default:
		return false
	}
}

var ActiveStatuses = []OrderStatus{StatusPending, StatusAccepted, StatusInProgress}

type QualityTier string

const (
	QualityBasic    QualityTier = "basic"
	QualityStandard QualityTier = "standard"
	QualityPremium  QualityTier = "premium"
	QualityLuxury   QualityTier = "luxury"
)

func (q QualityTier) Threshold() float64 {
	switch q {
	case QualityStandard:
		return 60
	case QualityPremium:
		return 75
	case QualityLuxury:
		return 90
	default:
		return 40
	}
}

type PaymentKind string

const (
	PaymentImmediate    PaymentKind = "immediate"
	PaymentOnCompletion PaymentKind = "on_completion"
	PaymentNetDays      PaymentKind = "net_days"
	PaymentMilestone    PaymentKind = "milestone"
)

type PaymentTerms struct {
	Kind            PaymentKind `json:"kind"`
	NetDays         int         `json:"net_days,omitempty"`
	CollectionRisk  float64     `json:"collection_risk,omitempty"`
	UpfrontFraction float64     `json:"upfront_fraction,omitempty"`
}

type FailReason string

const (
	FailDeadlineMissed FailReason = "deadline_missed"
	FailOutOfStock     FailReason = "out_of_stock"
	FailQuality        FailReason = "quality"
	FailCancelled      FailReason = "cancelled"
)

type LineItem struct {
	ProductID string      `json:"product_id"`
	Name      string      `json:"name"`
	Quantity  int         `json:"quantity"`
	UnitPrice float64     `json:"unit_price"`
	UnitCost  float64     `json:"unit_cost"`
	Tier      QualityTier `json:"tier"`
}

type Order struct {
	ID           string               `json:"id"`
	BusinessID   string               `json:"business_id"`
	CustomerID   string               `json:"customer_id"`
	CustomerType catalog.CustomerType `json:"customer_type"`
	CustomerMood string               `json:"customer_mood"`
	Items        []LineItem           `json:"items"`
	TotalAmount  float64              `json:"total_amount"`
	TotalCost    float64              `json:"total_cost"`
	Status       OrderStatus          `json:"status"`
	Deadline     time.Time            `json:"deadline"`
	ExpiresAt    time.Time            `json:"expires_at"`
	Terms        PaymentTerms         `json:"terms"`

	PaidAmount       float64     `json:"paid_amount"`
	TipAmount        float64     `json:"tip_amount"`
	RequiredQuality  QualityTier `json:"required_quality"`
	DeliveredQuality float64     `json:"delivered_quality"`
	LoyaltyTier      int         `json:"loyalty_tier"`
	FailReason       FailReason  `json:"fail_reason,omitempty"`
	AssignedTo       string      `json:"assigned_to,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	FailedAt    *time.Time `json:"failed_at,omitempty"`
}

// OrderUpdate is the mutable part of an order. Stores overwrite these fields
// and leave identity, items and terms untouched.
type OrderUpdate struct {
	Status           OrderStatus `json:"status"`
	PaidAmount       float64     `json:"paid_amount"`
	TipAmount        float64     `json:"tip_amount"`
	DeliveredQuality float64     `json:"delivered_quality"`
	FailReason       FailReason  `json:"fail_reason,omitempty"`
	AssignedTo       string      `json:"assigned_to,omitempty"`
	AcceptedAt       *time.Time  `json:"accepted_at,omitempty"`
	StartedAt        *time.Time  `json:"started_at,omitempty"`
	CompletedAt      *time.Time  `json:"completed_at,omitempty"`
	FailedAt         *time.Time  `json:"failed_at,omitempty"`
}

func (o Order) Update() OrderUpdate {
	return OrderUpdate{
		Status:           o.Status,
		PaidAmount:       o.PaidAmount,
		TipAmount:        o.TipAmount,
		DeliveredQuality: o.DeliveredQuality,
		FailReason:       o.FailReason,
		AssignedTo:       o.AssignedTo,
		AcceptedAt:       o.AcceptedAt,
		StartedAt:        o.StartedAt,
		CompletedAt:      o.CompletedAt,
		FailedAt:         o.FailedAt,
	}
}

func (o *Order) ApplyUpdate(u OrderUpdate) {
	o.Status = u.Status
	o.PaidAmount = u.PaidAmount
	o.TipAmount = u.TipAmount
	o.DeliveredQuality = u.DeliveredQuality
	o.FailReason = u.FailReason
	o.AssignedTo = u.AssignedTo
	o.AcceptedAt = u.AcceptedAt
	o.StartedAt = u.StartedAt
	o.CompletedAt = u.CompletedAt
	o.FailedAt = u.FailedAt
}

type Role string

const (
	RoleManager    Role = "manager"
	RoleSpecialist Role = "specialist"
	RoleSpeedster  Role = "speedster"
	RoleTrainee    Role = "trainee"
)

// Slots is how many orders one employee of this role can carry at once.
func (r Role) Slots() int {
	switch r {
	case RoleManager:
		return 4
	case RoleSpecialist:
		return 3
	default:
		return 2
	}
}

type Stats struct {
	Speed   float64 `json:"speed"`
	Quality float64 `json:"quality"`
	Morale  float64 `json:"morale"`
}

type SkillProgress struct {
	Level int     `json:"level"`
	XP    float64 `json:"xp"`
}

type Employee struct {
	ID             string                   `json:"id"`
	Name           string                   `json:"name"`
	Role           Role                     `json:"role"`
	SalaryPerDay   float64                  `json:"salary_per_day"`
	Stats          Stats                    `json:"stats"`
	Skills         map[string]SkillProgress `json:"skills"`
	Specialization string                   `json:"specialization,omitempty"`
	UnpaidWages    float64                  `json:"unpaid_wages"`
	TasksCompleted int                      `json:"tasks_completed"`
	HiredAt        time.Time                `json:"hired_at"`
}

type Candidate struct {
	ID           string                   `json:"id"`
	Name         string                   `json:"name"`
	Role         Role                     `json:"role"`
	Trait        string                   `json:"trait"`
	SalaryPerDay float64                  `json:"salary_per_day"`
	Stats        Stats                    `json:"stats"`
	Skills       map[string]SkillProgress `json:"skills"`
	PostedAt     time.Time                `json:"posted_at"`
}

type CustomerProfile struct {
	ID            string               `json:"id"`
	Type          catalog.CustomerType `json:"type"`
	LoyaltyScore  float64              `json:"loyalty_score"`
	Tier          int                  `json:"tier"`
	OrderHistory  []string             `json:"order_history"`
	LifetimeValue float64              `json:"lifetime_value"`
	LastOrderAt   time.Time            `json:"last_order_at"`
	DecayedWeeks  int                  `json:"decayed_weeks"`
}

type ExpenseCategory string

const (
	ExpenseRent        ExpenseCategory = "rent"
	ExpenseUtilities   ExpenseCategory = "utilities"
	ExpenseStaff       ExpenseCategory = "staff"
	ExpenseLicense     ExpenseCategory = "license"
	ExpenseSupplies    ExpenseCategory = "supplies"
	ExpenseMaintenance ExpenseCategory = "maintenance"
	ExpenseInventory   ExpenseCategory = "inventory"
	ExpenseLoanPayment ExpenseCategory = "loan_payment"
	ExpenseTax         ExpenseCategory = "tax"
)

type Expense struct {
	ID          string          `json:"id"`
	Category    ExpenseCategory `json:"category"`
	Description string          `json:"description"`
	Amount      float64         `json:"amount"`
	DueAt       time.Time       `json:"due_at"`
	PaidAt      *time.Time      `json:"paid_at,omitempty"`
	Recurring   bool            `json:"recurring"`
	Payroll     bool            `json:"payroll,omitempty"`
}

type Review struct {
	ID         string    `json:"id"`
	OrderID    string    `json:"order_id"`
	CustomerID string    `json:"customer_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
}

// MarketState is the supplier side of a business: how much of each inventory
// item can still be bought, and when the supplier refills.
type MarketState struct {
	StockLevels   map[string]int `json:"stock_levels"`
	LastRestockAt time.Time      `json:"last_restock_at"`
	NextRestockAt time.Time      `json:"next_restock_at"`
}

func (m MarketState) Clone() MarketState {
	m.StockLevels = cloneMap(m.StockLevels)
	return m
}

type Trend string

const (
	TrendRising  Trend = "rising"
	TrendFalling Trend = "falling"
	TrendStable  Trend = "stable"
)

type PriceCurve struct {
	ProductID    string    `json:"product_id"`
	BasePrice    float64   `json:"base_price"`
	CurrentPrice float64   `json:"current_price"`
	Demand       float64   `json:"demand"`
	Supply       float64   `json:"supply"`
	Elasticity   float64   `json:"elasticity"`
	History      []float64 `json:"history"`
	Trend        Trend     `json:"trend"`
}

type Holding struct {
	Symbol   string  `json:"symbol"`
	Shares   int64   `json:"shares"`
	AvgPrice float64 `json:"avg_price"`
}

// Receivable is money owed for a completed net-terms order.
type Receivable struct {
	OrderID        string    `json:"order_id"`
	CustomerID     string    `json:"customer_id"`
	Amount         float64   `json:"amount"`
	DueAt          time.Time `json:"due_at"`
	CollectionRisk float64   `json:"collection_risk"`
}

type BusinessState struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
	Name    string `json:"name"`
	TypeID  string `json:"type_id"`

	CashBalance          float64 `json:"cash_balance"`
	TotalRevenue         float64 `json:"total_revenue"`
	TotalExpenses        float64 `json:"total_expenses"`
	Reputation           float64 `json:"reputation"`
	CustomerSatisfaction float64 `json:"customer_satisfaction"`
	ReviewCount          int     `json:"review_count"`
	OrdersCompleted      int     `json:"orders_completed"`
	OrdersFailed         int     `json:"orders_failed"`

	Inventory map[string]int `json:"inventory"`
	Reviews   []Review       `json:"reviews"`

	OperatingHours  int                   `json:"operating_hours"`
	StaffCount      int                   `json:"staff_count"`
	Employees       []Employee            `json:"employees"`
	RecruitmentPool []Candidate           `json:"recruitment_pool"`
	Market          MarketState           `json:"market"`
	Pricing         map[string]PriceCurve `json:"pricing"`
	Customers       []CustomerProfile     `json:"customers"`
	PendingExpenses []Expense             `json:"pending_expenses"`
	Receivables     []Receivable          `json:"receivables"`
	Tools           []string              `json:"tools"`
	Holdings        []Holding             `json:"holdings"`
	ActiveOrderIDs  []string              `json:"active_order_ids"`

	LastRecruitmentAt time.Time `json:"last_recruitment_at"`
	LastPayrollAt     time.Time `json:"last_payroll_at"`
	LastTickAt        time.Time `json:"last_tick_at"`
	LastDailyCloseAt  time.Time `json:"last_daily_close_at"`
	CreatedAt         time.Time `json:"created_at"`
	LastActiveAt      time.Time `json:"last_active_at"`

	// LastDeltaSeq is the sequence number of the last delta a store applied.
	LastDeltaSeq int64 `json:"last_delta_seq"`
}

func (b *BusinessState) Employee(id string) (int, bool) {
	for i := range b.Employees {
		if b.Employees[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

func (b *BusinessState) HasManager() bool {
	for _, e := range b.Employees {
		if e.Role == RoleManager {
			return true
		}
	}
	return false
}

func (b *BusinessState) OwnsTool(id string) bool {
	for _, t := range b.Tools {
		if t == id {
			return true
		}
	}
	return false
}

func (b *BusinessState) Customer(id string) (int, bool) {
	for i := range b.Customers {
		if b.Customers[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

// CreateBusinessInput founds a business. StartingCapital of zero means the
// archetype's default.
type CreateBusinessInput struct {
	OwnerID         string
	Name            string
	TypeID          string
	StartingCapital float64
}
