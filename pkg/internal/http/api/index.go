package api

import (
	"git.solsynth.dev/hypernet/converse/pkg/internal/gateway"
	"git.solsynth.dev/hypernet/converse/pkg/internal/http/exts"
	"git.solsynth.dev/hypernet/converse/pkg/internal/services"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type Server struct {
	service    *services.Service
	gateway    *gateway.Gateway
	dispatcher *gateway.Dispatcher
	identity   services.Identity
}

func NewServer(service *services.Service, gw *gateway.Gateway, identity services.Identity) *Server {
	return &Server{
		service:    service,
		gateway:    gw,
		dispatcher: gateway.NewDispatcher(gw, service),
		identity:   identity,
	}
}

func (v *Server) MapAPIs(app *fiber.App, baseURL string) {
	api := app.Group(baseURL).Name("API")
	{
		api.Get("/ws", upgradeOnly, websocket.New(v.listenWebsocket))

		quick := api.Group("/quick")
		{
			quick.Post("/:conversationId/reply/:messageId", v.quickReply)
		}

		authed := api.Group("/", exts.Authenticator(v.identity), exts.Idempotency())

		conversations := authed.Group("/conversations").Name("Conversations API")
		{
			conversations.Get("/", v.listConversations)
			conversations.Post("/", v.createConversation)
			conversations.Get("/:conversationId", v.getConversation)
			conversations.Put("/:conversationId", v.editConversation)

			conversations.Post("/:conversationId/members", v.addParticipant)
			conversations.Put("/:conversationId/members/me", v.editMyParticipant)
			conversations.Delete("/:conversationId/members/me", v.leaveConversation)
			conversations.Delete("/:conversationId/members/:userId", v.removeParticipant)

			conversations.Post("/:conversationId/read", v.markConversationRead)

			conversations.Get("/:conversationId/messages", v.listMessages)
			conversations.Get("/:conversationId/messages/update", v.checkHasNewMessages)
		}

		messages := authed.Group("/messages").Name("Messages API")
		{
			messages.Post("/", v.sendMessage)
			messages.Get("/search", v.searchMessages)
			messages.Get("/:messageId", v.getMessage)
			messages.Put("/:messageId", v.editMessage)
			messages.Delete("/:messageId", v.deleteMessage)

			messages.Post("/:messageId/reactions", v.addReaction)
			messages.Delete("/:messageId/reactions", v.removeReaction)
			messages.Post("/:messageId/read", v.markMessageRead)
		}

		authed.Post("/uploads", v.upload)
		authed.Get("/whats-new", v.getWhatsNew)
	}
}
