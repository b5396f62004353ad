package apifyimpl

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/opentruth/truth-parser-telegram-bot/internal/truthsocial"
	"github.com/opentruth/truth-parser-telegram-bot/pkg/config"
	"github.com/opentruth/truth-parser-telegram-bot/pkg/logger"
	"go.uber.org/fx"
)

type Opts struct {
	fx.In

	Config *config.Config
	Logger logger.Logger
}

// ApifyImpl fetches Truth Social posts through the Apify scraper actor.
type ApifyImpl struct {
	token      string
	actorID    string
	baseURL    string
	httpClient *http.Client
	logger     logger.Logger
}

func New(opts Opts) *ApifyImpl {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.Logger = nil
	// Synchronous actor runs can take a while; a hang past this is treated
	// as a fetch failure.
	rc.HTTPClient.Timeout = 2 * time.Minute

	return &ApifyImpl{
		token:      opts.Config.Apify.Token,
		actorID:    opts.Config.Apify.ActorID,
		baseURL:    opts.Config.Apify.BaseURL,
		httpClient: rc.StandardClient(),
		logger:     opts.Logger.WithComponent("ApifyClient"),
	}
}

var _ truthsocial.Client = (*ApifyImpl)(nil)
