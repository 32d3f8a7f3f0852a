// Package model defines the core domain models used throughout the application:
// reward cards, transactions, and the closed category and region sets.
package model
