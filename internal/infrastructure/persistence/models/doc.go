// Package models holds the GORM persistence models. Domain types stay free
// of ORM tags; each model converts to and from its aggregate.
package models
