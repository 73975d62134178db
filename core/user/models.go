package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/elimu/core"
)

// Groups are the role memberships stored on a User.
const (
	GroupAdmin      = "admin"
	GroupInstructor = "instructor"
	GroupStudent    = "student"
	GroupSponsor    = "sponsor"
)

// Role is the single functional role a principal acts with, resolved from its groups.
// Values are ordered by precedence: Admin > Instructor > Student > Sponsor > Anonymous.
type Role int

const (
	RoleAnonymous Role = iota
	RoleSponsor
	RoleStudent
	RoleInstructor
	RoleAdmin
)

var (
	AllGroups = []string{GroupAdmin, GroupInstructor, GroupStudent, GroupSponsor}

	groupRoles = map[string]Role{
		GroupAdmin:      RoleAdmin,
		GroupInstructor: RoleInstructor,
		GroupStudent:    RoleStudent,
		GroupSponsor:    RoleSponsor,
	}

	roleNames = map[Role]string{
		RoleAnonymous:  "anonymous",
		RoleSponsor:    GroupSponsor,
		RoleStudent:    GroupStudent,
		RoleInstructor: GroupInstructor,
		RoleAdmin:      GroupAdmin,
	}

	Roles = []RoleInfo{
		{Name: "Sponsor", Value: GroupSponsor},
		{Name: "Student", Value: GroupStudent},
		{Name: "Instructor", Value: GroupInstructor},
		{Name: "Admin", Value: GroupAdmin},
	}
)

type RoleInfo struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return roleNames[RoleAnonymous]
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	*r = ParseRole(string(text))
	return nil
}

// ParseRole maps a group name to its Role, RoleAnonymous when unknown.
func ParseRole(group string) Role {
	return groupRoles[core.CleanString(group, true /* lower */)]
}

// ResolveRole returns the highest-precedence role among groups.
func ResolveRole(groups []string) Role {
	role := RoleAnonymous
	for _, g := range groups {
		if r := ParseRole(g); r > role {
			role = r
		}
	}
	return role
}

// Principal is the authenticated actor of a request.
type Principal struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

// Anonymous is the principal of unauthenticated requests.
var Anonymous = Principal{}

// DisplayName is how messages refer to p.
func (p Principal) DisplayName() string {
	if p.Username != "" {
		return p.Username
	}
	return p.Email
}

func (p Principal) IsAuthenticated() bool { return p.UserID != "" && p.Role != RoleAnonymous }
func (p Principal) IsAdmin() bool         { return p.Role == RoleAdmin }
func (p Principal) IsInstructor() bool    { return p.Role == RoleInstructor }
func (p Principal) IsStudent() bool       { return p.Role == RoleStudent }
func (p Principal) IsSponsor() bool       { return p.Role == RoleSponsor }

// CanManage reports whether p may modify a resource owned by ownerID:
// admins manage everything, anyone else only what they own (instructors their courses,
// students and sponsors their self-scoped resources).
func (p Principal) CanManage(ownerID string) bool {
	switch {
	case !p.IsAuthenticated():
		return false
	case p.IsAdmin():
		return true
	default:
		return ownerID != "" && ownerID == p.UserID
	}
}

type User struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	Roles        []string  `json:"roles" db:"-"`
	PasswordHash []byte    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login" db:"-"`          // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

// Role resolves the user's groups to its single functional role.
func (u User) Role() Role {
	return ResolveRole(u.Roles)
}

func (u User) HasGroup(group string) bool {
	for _, g := range u.Roles {
		if g == group {
			return true
		}
	}
	return false
}

// Principal returns the acting identity of u; inactive users are anonymous.
func (u User) Principal() Principal {
	if !u.IsActive || u.ID == "" {
		return Anonymous
	}
	return Principal{
		UserID:   u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role(),
	}
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string   `json:"name" validate:"required"`
	Username        string   `json:"username" validate:"omitempty,min=3,alphanum_"`
	Email           string   `json:"email" validate:"omitempty,email"`
	Password        string   `json:"password" validate:"required"`
	PasswordConfirm string   `json:"password_confirm" validate:"required,eqfield=Password"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	for i, r := range nu.Roles {
		nu.Roles[i] = core.CleanString(r, true /* lower */)
	}
	return validate.Struct(nu)
}

type GetFilter struct {
	ID              string
	Username        string
	Email           string
	UsernameOrEmail string
}
