// Package testingx provides testing helpers and fixtures for the partner
// client packages.
//
// # Overview
//
// testingx contains small utilities to speed up unit tests: a mock logger
// with in-memory capture, error-code assertions, a throwaway PKI written to
// a temp directory, and an httptest server that enforces mutual TLS.
//
// # Features
//
//   - MockLogger with capture, bound fields and assertions
//   - AssertCode for core/errors classifications
//   - NewPKI: CA, server and client certificates as PEM files
//   - NewMTLSServer: RequireAndVerifyClientCert server with request counters
//
// # Usage
//
//	pki := testingx.NewPKI(t)
//	srv := testingx.NewMTLSServer(t, pki, testingx.JSONHandler(200, `{"ok":true}`))
//
// testingx is for tests only.
package testingx
