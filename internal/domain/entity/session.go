package entity

// Session is the authenticated caller, handed to every use case call. It is
// trusted as given; no further authorization happens in the core.
type Session struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	AvatarRef   string `json:"avatar_ref,omitempty"`
}

// Name falls back to "Someone" for users without a display name.
func (s Session) Name() string {
	if s.DisplayName == "" {
		return "Someone"
	}
	return s.DisplayName
}
