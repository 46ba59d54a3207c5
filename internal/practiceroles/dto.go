package practiceroles

type ActivateRequest struct {
	CatalogID int64 `json:"catalog_id" validate:"required,gt=0"`
}

type OverrideRequest struct {
	Capability string `json:"capability" validate:"required,max=64"`
}
