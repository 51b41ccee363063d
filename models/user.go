package models

// Role values carried in the access token
const (
	RoleAdmin   = "admin"
	RoleWaiter  = "waiter"
	RoleCashier = "cashier"
)

// User represents a staff member who can log in
type User struct {
	Base
	Username     string  `gorm:"uniqueIndex;not null" json:"username"`
	PasswordHash string  `gorm:"not null" json:"-"`
	FullName     string  `gorm:"not null" json:"fullName"`
	Email        *string `json:"email"`
	Role         string  `gorm:"not null" json:"role"` // admin, waiter or cashier
	IsActive     bool    `gorm:"not null" json:"isActive"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// All returns every model managed by AutoMigrate, in dependency order
func All() []interface{} {
	return []interface{}{
		&User{},
		&Table{},
		&Customer{},
		&Product{},
		&OrderRequest{},
		&OrderRequestItem{},
		&Order{},
		&OrderItem{},
		&SongRequest{},
	}
}
