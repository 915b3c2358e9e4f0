package main

import (
	"net/http"

	"examhub/internal/domain/users"
)

type userKey string

const userCtx userKey = "user"

func getUserFromContext(r *http.Request) *users.User {
	user, _ := r.Context().Value(userCtx).(*users.User)
	return user
}
