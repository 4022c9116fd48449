package auth

type RegisterDTO struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	Name      string `json:"name" binding:"required"`
	BikeType  string `json:"bikeType"`
	BikeModel string `json:"bikeModel"`
	BikeYear  int    `json:"bikeYear"`
}

type LoginDTO struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshDTO struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type ResetRequestDTO struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetConfirmDTO struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// TokenPair is what login and refresh hand back to the client.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
