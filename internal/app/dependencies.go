package app

import (
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mrcrandell/fourgreenfieldsfarm-api/internal/auth"
	"github.com/mrcrandell/fourgreenfieldsfarm-api/internal/config"
	"github.com/mrcrandell/fourgreenfieldsfarm-api/internal/event_bus"
	"github.com/mrcrandell/fourgreenfieldsfarm-api/internal/rest"
	"github.com/mrcrandell/fourgreenfieldsfarm-api/internal/utils"
	"github.com/mrcrandell/fourgreenfieldsfarm-api/pkg/contact"
	"github.com/mrcrandell/fourgreenfieldsfarm-api/pkg/event"
	"github.com/mrcrandell/fourgreenfieldsfarm-api/pkg/event_import"
	"github.com/mrcrandell/fourgreenfieldsfarm-api/pkg/mail"
	"github.com/mrcrandell/fourgreenfieldsfarm-api/pkg/user"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	Clock       utils.Clock
	Validate    *validator.Validate
	EventBus    *event_bus.EventBus
	TokenIssuer *auth.TokenIssuer
	Health      *HealthHandler

	UserService user.Service
	UserHandler *user.Handler

	EventService  event.Service
	EventHandler  *event.EventHandler
	ImportHandler *event_import.Handler

	MailSender      mail.Sender
	ContactNotifier *mail.ContactNotifier
	ContactHandler  *contact.Handler
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(pool *pgxpool.Pool, cfg config.Application) (*Dependencies, error) {
	deps := &Dependencies{}

	deps.Clock = &utils.SystemClock{}
	deps.Validate = rest.NewValidator()
	deps.EventBus = event_bus.NewEventBus()
	deps.TokenIssuer = auth.NewTokenIssuer(cfg.Auth, deps.Clock)
	deps.Health = NewHealthHandler(pool)

	deps.UserService = user.NewUserService(user.NewUserRepo(pool), deps.TokenIssuer)
	deps.UserHandler = user.NewHandler(deps.UserService, deps.Validate)

	deps.EventService = event.NewService(event.NewRepository(pool), cfg.Events)
	deps.EventHandler = event.NewEventHandler(deps.EventService, deps.Validate, cfg.Events.Location())
	deps.ImportHandler = event_import.NewHandler(event_import.NewImporter(deps.EventService, cfg.Events))

	renderer, err := mail.NewRenderer(deps.Clock)
	if err != nil {
		return nil, err
	}
	deps.MailSender = mail.NewMailgunSender(cfg.Mail)
	deps.ContactNotifier = mail.NewContactNotifier(renderer, deps.MailSender, cfg.Mail.ContactRecipient)
	deps.ContactNotifier.Subscribe(deps.EventBus)
	deps.ContactHandler = contact.NewHandler(contact.NewService(deps.EventBus), deps.Validate)

	return deps, nil
}
