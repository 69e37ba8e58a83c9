// Package models holds the gorm rows behind the repositories. Domain types
// carry no gorm tags; each row converts to and from its domain type with
// ToDomain and a From* method.
package models
