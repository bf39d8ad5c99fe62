package api

type Role string

const (
	Role_Admin        Role = "admin"
	Role_Photographer Role = "photographer"
	Role_Client       Role = "client"
	Role_Guest        Role = "guest"
)

// UserProfile is the cached copy of the signed-in user. It is advisory only;
// the server owns the session.
type UserProfile struct {
	Id          string `json:"id" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Name        string `json:"name,omitempty"`
	Role        Role   `json:"role" validate:"required,oneof=admin photographer client guest"`
	StudioName  string `json:"studioName,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty" validate:"omitempty,url"`
	LastLoginAt string `json:"lastLoginAt,omitempty"`
}

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by the login and verify endpoints.
type AuthResponse struct {
	User               *UserProfile `json:"user"`
	MustChangePassword bool         `json:"mustChangePassword"`
}

type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
