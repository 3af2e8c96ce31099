package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-tracker/internal/database"
	"github.com/adanyl0v/go-tracker/internal/services"
)

// Resolver builds the services bound to a request session.
type Resolver func(db database.DBTX) *services.Set

type Handler interface {
	HandleSessionMiddleware(c *gin.Context)
	HandleAuthMiddleware(c *gin.Context)
	HandleHealthcheck(c *gin.Context)

	HandleRegister(c *gin.Context)
	HandleLogin(c *gin.Context)
	HandleLogout(c *gin.Context)
	HandleMe(c *gin.Context)

	HandleCreateTask(c *gin.Context)
	HandleGetTasks(c *gin.Context)
	HandleSearchTasks(c *gin.Context)
	HandleGetTaskStatistics(c *gin.Context)
	HandleBulkCreateTasks(c *gin.Context)
	HandleBulkUpdateTaskStatus(c *gin.Context)
	HandleGetTask(c *gin.Context)
	HandleUpdateTask(c *gin.Context)
	HandleDeleteTask(c *gin.Context)

	HandleCreateShipment(c *gin.Context)
	HandleGetShipments(c *gin.Context)
	HandleSearchShipments(c *gin.Context)
	HandleGetShipmentStatistics(c *gin.Context)
	HandleBulkCreateShipments(c *gin.Context)
	HandleBulkUpdateShipmentStatus(c *gin.Context)
	HandleGetShipment(c *gin.Context)
	HandleUpdateShipment(c *gin.Context)
	HandleDeleteShipment(c *gin.Context)
}

type handlerImpl struct {
	logger  zerolog.Logger
	db      database.Beginner
	resolve Resolver
	env     string
	version string
	// secureCookies marks the access token cookie as https only.
	secureCookies bool
}

type Options struct {
	Env           string
	Version       string
	SecureCookies bool
}

func New(
	logger zerolog.Logger,
	db database.Beginner,
	resolve Resolver,
	opts Options,
) Handler {
	registerValidatorTagNames()
	return &handlerImpl{
		logger:        logger,
		db:            db,
		resolve:       resolve,
		env:           opts.Env,
		version:       opts.Version,
		secureCookies: opts.SecureCookies,
	}
}

type healthcheckResponse struct {
	Status  string `json:"status"`
	Env     string `json:"env"`
	Version string `json:"version"`
}

func (h *handlerImpl) HandleHealthcheck(c *gin.Context) {
	c.JSON(http.StatusOK, healthcheckResponse{
		Status:  "available",
		Env:     h.env,
		Version: h.version,
	})
}

// respond commits the request session and writes the body. Nothing is
// written as a success if the commit fails.
func (h *handlerImpl) respond(c *gin.Context, status int, body any) {
	session, ok := sessionFromContext(c)
	if ok {
		err := session.Commit(c)
		if err != nil {
			h.logger.Error().
				Err(err).
				Msg("failed to commit session")
			abort(c, newStatusTextError(http.StatusInternalServerError))
			return
		}
	}

	if body == nil {
		c.Status(status)
		return
	}
	c.JSON(status, body)
}
