package services

import (
	"fmt"
	"time"

	"git.solsynth.dev/hypernet/converse/pkg/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
)

type ReplyClaims struct {
	UserID         uint `json:"user_id"`
	ConversationID uint `json:"conversation_id"`
	MessageID      uint `json:"message_id"`
	jwt.RegisteredClaims
}

func CreateReplyToken(conversationId, messageId, userId uint) (string, error) {
	claims := ReplyClaims{
		UserID:         userId,
		ConversationID: conversationId,
		MessageID:      messageId,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "messaging",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * 24 * 7)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	tks, err := token.SignedString([]byte(viper.GetString("security.reply_token_secret")))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %v", err)
	}
	return tks, nil
}

func ParseReplyToken(tk string) (ReplyClaims, error) {
	var claims ReplyClaims
	token, err := jwt.ParseWithClaims(tk, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Method)
		}
		return []byte(viper.GetString("security.reply_token_secret")), nil
	})
	if err != nil {
		return claims, err
	}
	if !token.Valid {
		return claims, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// QuickReply answers a notification without a session. The token decides
// who is speaking, the rest goes through SendMessage like any other send.
func (v *Service) QuickReply(token string, conversationId, messageId uint, content string) (MessageView, error) {
	claims, err := ParseReplyToken(token)
	if err != nil {
		return MessageView{}, newError(ErrUnauthorized, "invalid reply token: %v", err)
	}
	if claims.ConversationID != conversationId || claims.MessageID != messageId {
		return MessageView{}, newError(ErrForbidden, "reply token does not belong to this message")
	}

	return v.SendMessage(claims.UserID, MessageInput{
		ConversationID: &conversationId,
		Content:        content,
		Type:           models.MessageTypeText,
		ReplyToID:      &messageId,
	})
}
