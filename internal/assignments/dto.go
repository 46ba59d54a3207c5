package assignments

type AssignRequest struct {
	UserID         int64 `json:"user_id" validate:"required,gt=0"`
	PracticeRoleID int64 `json:"practice_role_id" validate:"required,gt=0"`
}

type UnassignRequest struct {
	UserID         int64 `json:"user_id" validate:"required,gt=0"`
	PracticeRoleID int64 `json:"practice_role_id" validate:"required,gt=0"`
}
