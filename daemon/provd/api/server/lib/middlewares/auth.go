// Copyright (C) 2019-2025 Algorand, Inc.
// This file is part of go-provenance
//
// go-provenance is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// go-provenance is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with go-provenance.  If not, see <https://www.gnu.org/licenses/>.

package middlewares

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// TokenHeader defines the http header that includes the auth token
const TokenHeader = "X-Prov-API-Token"

// InvalidTokenMessage is the error message returned for a missing or wrong token
const InvalidTokenMessage = "Invalid API Token"

// AuthMiddleware checks the API token of every request outside the bypass list.
type AuthMiddleware struct {
	header string
	tokens [][]byte
	bypass map[string]bool
}

// MakeAuth constructs the auth middleware function. Requests to a path in
// bypass are served without a token.
func MakeAuth(header string, tokens []string, bypass ...string) echo.MiddlewareFunc {
	auth := AuthMiddleware{
		header: header,
		bypass: make(map[string]bool, len(bypass)),
	}
	for _, token := range tokens {
		auth.tokens = append(auth.tokens, []byte(token))
	}
	for _, path := range bypass {
		auth.bypass[path] = true
	}
	return auth.handler
}

func (auth *AuthMiddleware) handler(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		req := ctx.Request()
		// OPTIONS responses never require auth
		if req.Method == http.MethodOptions || auth.bypass[req.URL.Path] {
			return next(ctx)
		}

		providedToken := []byte(req.Header.Get(auth.header))
		if len(providedToken) == 0 {
			// Accept tokens provided in a bearer token format.
			authentication := strings.SplitN(req.Header.Get("Authorization"), " ", 2)
			if len(authentication) == 2 && strings.EqualFold("Bearer", authentication[0]) {
				providedToken = []byte(authentication[1])
			}
		}

		// Check the token in constant time
		for _, token := range auth.tokens {
			if subtle.ConstantTimeCompare(providedToken, token) == 1 {
				return next(ctx)
			}
		}
		return echo.NewHTTPError(http.StatusUnauthorized, InvalidTokenMessage)
	}
}
