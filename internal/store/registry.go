package store

import "vaxbook/internal/domain"

type PersonRegistry interface {
	FindByDocument(document string) (domain.Person, bool)
}

type VaccineRegistry interface {
	FindByName(name string) (domain.Vaccine, bool)
}

type CenterRegistry interface {
	FindByCode(code string) (*domain.HealthCenter, bool)
	Centers() []*domain.HealthCenter
}
