package handler

type SocialCallbackRequest struct {
	Code string `json:"code" validate:"required,max=2048"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type MeResponse struct {
	UserID    string   `json:"userId"`
	SessionID string   `json:"sessionId"`
	Email     string   `json:"email"`
	Name      string   `json:"name"`
	AvatarURL string   `json:"avatarUrl,omitempty"`
	Roles     []string `json:"roles"`
	Providers []string `json:"providers"`
}
