package user

import "time"

// Role is the single role a user holds.
type Role string

const (
	RoleOwner Role = "owner"
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
	RoleUser  Role = "user"
)

func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleStaff, RoleUser:
		return true
	}
	return false
}

// IsManager reports whether the role may run dispatch and admin actions.
func (r Role) IsManager() bool {
	return r == RoleOwner || r == RoleAdmin
}

type User struct {
	ID        string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	Name      string    `gorm:"column:name" json:"name"`
	Email     string    `gorm:"column:email;uniqueIndex" json:"email"`
	Phone     string    `gorm:"column:phone" json:"phone,omitempty"`
	Role      Role      `gorm:"column:role;index" json:"role"`
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (User) TableName() string { return "users" }
