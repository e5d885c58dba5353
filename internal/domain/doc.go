// Package domain defines the core types and the interfaces the gateway's
// components depend on. No implementation code lives here.
package domain
