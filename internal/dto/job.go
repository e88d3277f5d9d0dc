package dto

type RunJobRequest struct {
	Name string `param:"name" validate:"required"`
}
