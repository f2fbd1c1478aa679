package server

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Request payloads form a closed set of API message variants, each validated
// at the process boundary before it reaches the engine.

type searchRequest struct {
	Query string `json:"query"`
}

func (r searchRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Query, validation.Required, validation.Length(1, 1000)),
	)
}

type chatRequest struct {
	Prompt        string `json:"prompt"`
	ActiveExcerpt string `json:"activeExcerpt"`
}

func (r chatRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Prompt, validation.Required, validation.Length(1, 4000)),
		validation.Field(&r.ActiveExcerpt, validation.Length(0, 20000)),
	)
}

type tagRequest struct {
	Tag string `json:"tag"`
}

func (r tagRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Tag, validation.Required, validation.Length(1, 100)),
	)
}

type renameTagRequest struct {
	Old string `json:"old"`
	New string `json:"new"`
}

func (r renameTagRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Old, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.New, validation.Required, validation.Length(1, 100)),
	)
}
