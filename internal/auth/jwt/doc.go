// Package jwt validates bearer tokens against a JSON Web Key Set.
//
// Validation is optional for a call: a request without an Authorization
// header yields ErrNoToken and is left to the API key check. A token that
// is present must verify, be inside its validity window and match the
// configured issuers and audiences.
package jwt
