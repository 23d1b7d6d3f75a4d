package auth

import (
	"collab-canvas/internal/config"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the editor identity minted by the (out-of-process) auth
// service and carried on every token. The canvas server never stores
// accounts; this is all it knows about a user.
type Identity struct {
	ID    string
	Name  string
	Color string
}

func GenerateJWT(identity Identity) (string, error) {
	claims := jwt.MapClaims{
		"user_id":    identity.ID,
		"user_name":  identity.Name,
		"user_color": identity.Color,
		"exp":        time.Now().Add(time.Hour * 24 * 3).Unix(), // expires in 3 days
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.AppConfig.JWTSecret))
}

func VerifyJWT(tokenString string) (*jwt.Token, error) {
	// parse token
	jwtToken, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(config.AppConfig.JWTSecret), nil
	})

	if err != nil {
		return nil, err
	}

	// isValid
	if !jwtToken.Valid {
		return nil, errors.New("token invalid")
	}

	return jwtToken, nil
}

func IdentityFromToken(token *jwt.Token) (Identity, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, errors.New("invalid token claims")
	}

	id, ok := claims["user_id"].(string)
	if !ok || id == "" {
		return Identity{}, errors.New("token has no user_id")
	}

	name, _ := claims["user_name"].(string)
	color, _ := claims["user_color"].(string)

	return Identity{ID: id, Name: name, Color: color}, nil
}
