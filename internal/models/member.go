package models

import "github.com/uptrace/bun"

type Degree string

const (
	DegreeApprentice Degree = "apprentice"
	DegreeCompanion  Degree = "companion"
	DegreeMaster     Degree = "master"
)

// Member is a brother of the lodge as listed by the member directory.
type Member struct {
	bun.BaseModel `bun:"table:members"`

	ID     string `bun:"id,pk" json:"id"`
	Name   string `bun:"name,notnull" json:"name"`
	Degree Degree `bun:"degree,notnull" json:"degree"`
	Active bool   `bun:"active,notnull" json:"active"`
}
