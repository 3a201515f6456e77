package repo

import (
	"gorm.io/gorm"
)

type IRepo interface {
	ExecutionEvent() IExecutionEvent
}

type Repo struct {
	omsDB *gorm.DB
}

func NewRepo(omsDB *gorm.DB) IRepo {
	return &Repo{
		omsDB: omsDB,
	}
}

func (r *Repo) ExecutionEvent() IExecutionEvent {
	return NewExecutionEventSQLRepo(r.omsDB)
}
