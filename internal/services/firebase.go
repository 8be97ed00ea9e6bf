package services

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// InitFirebaseAuth initializes the Firebase Admin SDK and returns the client
// used to verify therapist ID tokens
func InitFirebaseAuth(ctx context.Context, credPath string) (*auth.Client, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credPath))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	return app.Auth(ctx)
}
