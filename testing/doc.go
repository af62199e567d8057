// Package testkit provides helpers for exercising search builders and the pg executor in tests.
//
// The utilities avoid network calls so unit and integration tests can run quickly within CI.
// See sandbox.go for the mocked Postgres connection and fixtures.go for a small schema of
// companies, developers, projects, notes and a column-type catalogue.
package testkit
