package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	sessionSubject = "session"
	receiptSubject = "completion-receipt"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the payload of a login token.
type Claims struct {
	UserID int `json:"user_id"`
	jwt.RegisteredClaims
}

// ReceiptClaims prove that the server graded a lesson as passed. A client
// presents the receipt to retry a completion whose recording failed.
type ReceiptClaims struct {
	UserID     int    `json:"user_id"`
	SourceLang string `json:"source_language"`
	TargetLang string `json:"target_language"`
	LessonID   int    `json:"lesson_id"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 tokens with one secret.
type Tokens struct {
	secret     []byte
	tokenTTL   time.Duration
	receiptTTL time.Duration
	now        func() time.Time
}

func NewTokens(secret []byte, tokenTTL, receiptTTL time.Duration) *Tokens {
	return &Tokens{secret: secret, tokenTTL: tokenTTL, receiptTTL: receiptTTL, now: time.Now}
}

func (t *Tokens) registered(subject string, ttl time.Duration) jwt.RegisteredClaims {
	now := t.now()
	return jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (t *Tokens) Issue(userID int) (string, error) {
	claims := &Claims{UserID: userID, RegisteredClaims: t.registered(sessionSubject, t.tokenTTL)}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

func (t *Tokens) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if err := t.parse(tokenString, claims, sessionSubject); err != nil {
		return nil, err
	}
	return claims, nil
}

func (t *Tokens) IssueReceipt(userID int, sourceLang, targetLang string, lessonID int) (string, error) {
	claims := &ReceiptClaims{
		UserID:           userID,
		SourceLang:       sourceLang,
		TargetLang:       targetLang,
		LessonID:         lessonID,
		RegisteredClaims: t.registered(receiptSubject, t.receiptTTL),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

func (t *Tokens) ParseReceipt(tokenString string) (*ReceiptClaims, error) {
	claims := &ReceiptClaims{}
	if err := t.parse(tokenString, claims, receiptSubject); err != nil {
		return nil, err
	}
	return claims, nil
}

func (t *Tokens) parse(tokenString string, claims jwt.Claims, subject string) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithSubject(subject),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
