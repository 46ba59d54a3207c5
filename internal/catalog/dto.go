package catalog

type CreateEntryRequest struct {
	RoleKey             string   `json:"role_key" validate:"required,max=64"`
	DisplayName         string   `json:"display_name" validate:"required,max=200"`
	Category            string   `json:"category" validate:"required,oneof=clinical administrative support"`
	DefaultCapabilities []string `json:"default_capabilities" validate:"omitempty,dive,required"`
	Description         string   `json:"description" validate:"omitempty,max=2000"`
}

type UpdateEntryRequest struct {
	DisplayName         string   `json:"display_name" validate:"required,max=200"`
	Category            string   `json:"category" validate:"required,oneof=clinical administrative support"`
	DefaultCapabilities []string `json:"default_capabilities" validate:"omitempty,dive,required"`
	Description         string   `json:"description" validate:"omitempty,max=2000"`
}
