package jwt

type Role int

type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

type RegisterAgent struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Agent struct {
	Id           string `json:"id"`
	TenantID     string `json:"tenantId"`
	Email        string `json:"email"`
	PasswordHash string `json:"password"`
}
