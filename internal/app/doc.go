// Package app provides the application service layer.
//
// Orchestrates use cases: registration, login, token authentication, dividend queries with optional trading, sentiment reads and trading history.
// Sits between HTTP handlers and the domain services. Depends on interfaces, not concrete implementations.
package app
