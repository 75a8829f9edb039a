package valueobject

import "time"

const BearerTokenType = "Bearer"

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64
}

func NewTokenPair(accessToken, refreshToken string, accessTTL time.Duration) *TokenPair {
	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    BearerTokenType,
		ExpiresIn:    int64(accessTTL / time.Second),
	}
}
