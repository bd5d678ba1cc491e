package request

type RequestOTPRequest struct {
	Email  string `json:"email" validate:"required,email"`
	Intent string `json:"intent" validate:"required,oneof=login verify reset delete"`
}

type VerifyOTPRequest struct {
	Email  string `json:"email" validate:"required,email"`
	Intent string `json:"intent" validate:"required,oneof=login verify"`
	Code   string `json:"code" validate:"required,len=6,numeric"`
}

type CompleteResetRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required,min=10,max=128"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=10,max=128"`
}

type ChangePasswordVerifiedRequest struct {
	Code        string `json:"code" validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required,min=10,max=128"`
}

type DeleteAccountRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}
