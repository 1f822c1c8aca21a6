package game

import "github.com/google/uuid"

type UniqueIdGenerator interface {
	Generate() string
}

type idGen struct{}

func NewIdGen() idGen {
	return idGen{}
}

func (idGen) Generate() string {
	return uuid.NewString()
}
