package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/go-tracker/internal/models"
	"github.com/adanyl0v/go-tracker/internal/services"
)

type getShipmentResponse struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	Content           string    `json:"content"`
	Weight            float64   `json:"weight"`
	Destination       int       `json:"destination"`
	Status            string    `json:"status"`
	Priority          string    `json:"priority"`
	EstimatedDelivery time.Time `json:"estimated_delivery"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func newGetShipmentResponse(shipment *models.Shipment) getShipmentResponse {
	return getShipmentResponse{
		ID:                shipment.ID,
		UserID:            shipment.UserID,
		Content:           shipment.Content,
		Weight:            shipment.Weight,
		Destination:       shipment.Destination,
		Status:            string(shipment.Status),
		Priority:          string(shipment.Priority),
		EstimatedDelivery: shipment.EstimatedDelivery,
		CreatedAt:         shipment.CreatedAt,
		UpdatedAt:         shipment.UpdatedAt,
	}
}

func newGetShipmentsResponse(shipments []*models.Shipment) []getShipmentResponse {
	response := make([]getShipmentResponse, len(shipments))
	for i, shipment := range shipments {
		response[i] = newGetShipmentResponse(shipment)
	}
	return response
}

type shipmentStatisticsResponse struct {
	Total         int64            `json:"total"`
	ByStatus      map[string]int64 `json:"by_status"`
	ByPriority    map[string]int64 `json:"by_priority"`
	Overdue       int64            `json:"overdue"`
	AverageWeight float64          `json:"average_weight"`
}

func newShipmentStatisticsResponse(stats *models.ShipmentStatistics) shipmentStatisticsResponse {
	response := shipmentStatisticsResponse{
		Total:         stats.Total,
		ByStatus:      make(map[string]int64, len(stats.ByStatus)),
		ByPriority:    make(map[string]int64, len(stats.ByPriority)),
		Overdue:       stats.Overdue,
		AverageWeight: stats.AverageWeight,
	}
	for status, n := range stats.ByStatus {
		response.ByStatus[string(status)] = n
	}
	for priority, n := range stats.ByPriority {
		response.ByPriority[string(priority)] = n
	}
	return response
}

type createShipmentRequest struct {
	Content     string          `json:"content" binding:"required,min=1,max=255"`
	Weight      float64         `json:"weight" binding:"required,gt=0,lte=25"`
	Destination int             `json:"destination" binding:"required,gt=0,lte=2147483647"`
	Priority    models.Priority `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
}

func (r createShipmentRequest) params() services.CreateShipmentParams {
	return services.CreateShipmentParams{
		Content:     r.Content,
		Weight:      r.Weight,
		Destination: r.Destination,
		Priority:    r.Priority,
	}
}

func (h *handlerImpl) HandleCreateShipment(c *gin.Context) {
	var req createShipmentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	shipment, err := h.services(c).Shipments.Create(c, actorFromContext(c), req.params())
	if err != nil {
		h.abortWithServiceError(c, err, "failed to create shipment")
		return
	}

	h.respond(c, http.StatusCreated, newGetShipmentResponse(shipment))
}

type getShipmentsQuery struct {
	Skip     uint64 `form:"skip" binding:"max=9223372036854775807"`
	Limit    uint64 `form:"limit" binding:"omitempty,min=1,max=100"`
	Status   string `form:"status" binding:"omitempty,oneof=placed in_transit out_for_delivery delivered archived"`
	Priority string `form:"priority" binding:"omitempty,oneof=low medium high urgent"`
}

func (h *handlerImpl) HandleGetShipments(c *gin.Context) {
	var query getShipmentsQuery
	if !h.bindQuery(c, &query) {
		return
	}

	h.listShipments(c, services.ListShipmentsParams{
		Status:   models.ShipmentStatus(query.Status),
		Priority: models.Priority(query.Priority),
		Offset:   query.Skip,
		Limit:    query.Limit,
	})
}

type searchShipmentsQuery struct {
	Skip           uint64    `form:"skip" binding:"max=9223372036854775807"`
	Limit          uint64    `form:"limit" binding:"omitempty,min=1,max=100"`
	Status         string    `form:"status" binding:"omitempty,oneof=placed in_transit out_for_delivery delivered archived"`
	Priority       string    `form:"priority" binding:"omitempty,oneof=low medium high urgent"`
	OwnerID        string    `form:"owner_id" binding:"omitempty,uuid"`
	Destination    int       `form:"destination" binding:"omitempty,gt=0,lte=2147483647"`
	MinWeight      float64   `form:"min_weight" binding:"omitempty,gt=0,lte=25"`
	MaxWeight      float64   `form:"max_weight" binding:"omitempty,gt=0,lte=25"`
	Query          string    `form:"q" binding:"max=255"`
	DeliveryAfter  time.Time `form:"delivery_after" time_format:"2006-01-02T15:04:05Z07:00"`
	DeliveryBefore time.Time `form:"delivery_before" time_format:"2006-01-02T15:04:05Z07:00"`
}

func (h *handlerImpl) HandleSearchShipments(c *gin.Context) {
	var query searchShipmentsQuery
	if !h.bindQuery(c, &query) {
		return
	}

	h.listShipments(c, services.ListShipmentsParams{
		OwnerID:        query.OwnerID,
		Status:         models.ShipmentStatus(query.Status),
		Priority:       models.Priority(query.Priority),
		Destination:    query.Destination,
		MinWeight:      optionalWeight(query.MinWeight),
		MaxWeight:      optionalWeight(query.MaxWeight),
		DeliveryAfter:  optionalTime(query.DeliveryAfter),
		DeliveryBefore: optionalTime(query.DeliveryBefore),
		Query:          query.Query,
		Offset:         query.Skip,
		Limit:          query.Limit,
	})
}

func (h *handlerImpl) listShipments(c *gin.Context, params services.ListShipmentsParams) {
	shipments, err := h.services(c).Shipments.List(c, actorFromContext(c), params)
	if err != nil {
		h.abortWithServiceError(c, err, "failed to list shipments")
		return
	}

	h.logger.Debug().
		Int("count", len(shipments)).
		Msg("fetched shipments")
	h.respond(c, http.StatusOK, newGetShipmentsResponse(shipments))
}

func (h *handlerImpl) HandleGetShipmentStatistics(c *gin.Context) {
	stats, err := h.services(c).Shipments.Statistics(c, actorFromContext(c))
	if err != nil {
		h.abortWithServiceError(c, err, "failed to get shipment statistics")
		return
	}

	h.respond(c, http.StatusOK, newShipmentStatisticsResponse(stats))
}

type bulkCreateShipmentsRequest struct {
	Items []createShipmentRequest `json:"items" binding:"required,min=1,max=100,dive"`
}

func (h *handlerImpl) HandleBulkCreateShipments(c *gin.Context) {
	var req bulkCreateShipmentsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	params := make([]services.CreateShipmentParams, len(req.Items))
	for i, item := range req.Items {
		params[i] = item.params()
	}

	shipments, err := h.services(c).Shipments.BulkCreate(c, actorFromContext(c), params)
	if err != nil {
		h.abortWithServiceError(c, err, "failed to bulk create shipments")
		return
	}

	h.respond(c, http.StatusCreated, newGetShipmentsResponse(shipments))
}

type bulkUpdateShipmentStatusRequest struct {
	IDs    []string              `json:"ids" binding:"required,min=1,max=100"`
	Status models.ShipmentStatus `json:"status" binding:"required,oneof=placed in_transit out_for_delivery delivered archived"`
}

func (h *handlerImpl) HandleBulkUpdateShipmentStatus(c *gin.Context) {
	var req bulkUpdateShipmentStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}

	for _, id := range req.IDs {
		if !parseID(id) {
			h.logger.Error().
				Str("shipment_id", id).
				Msg("invalid shipment id")
			abort(c, newNotFoundError("shipment "+id+": "+services.ErrShipmentNotFound.Error()))
			return
		}
	}

	shipments, err := h.services(c).Shipments.BulkUpdateStatus(c, actorFromContext(c), req.IDs, req.Status)
	if err != nil {
		h.abortWithServiceError(c, err, "failed to bulk update shipment status")
		return
	}

	h.respond(c, http.StatusOK, newGetShipmentsResponse(shipments))
}

func (h *handlerImpl) shipmentID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if !parseID(id) {
		h.logger.Error().
			Str("shipment_id", id).
			Msg("invalid shipment id")
		abort(c, newNotFoundError(services.ErrShipmentNotFound.Error()))
		return "", false
	}
	return id, true
}

func (h *handlerImpl) HandleGetShipment(c *gin.Context) {
	id, ok := h.shipmentID(c)
	if !ok {
		return
	}

	shipment, err := h.services(c).Shipments.Get(c, actorFromContext(c), id)
	if err != nil {
		h.abortWithServiceError(c, err, "failed to get shipment")
		return
	}

	h.respond(c, http.StatusOK, newGetShipmentResponse(shipment))
}

type updateShipmentRequest struct {
	Content           *string                `json:"content" binding:"omitempty,min=1,max=255"`
	Weight            *float64               `json:"weight" binding:"omitempty,gt=0,lte=25"`
	Destination       *int                   `json:"destination" binding:"omitempty,gt=0,lte=2147483647"`
	Status            *models.ShipmentStatus `json:"status" binding:"omitempty,oneof=placed in_transit out_for_delivery delivered archived"`
	Priority          *models.Priority       `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	EstimatedDelivery *time.Time             `json:"estimated_delivery"`
}

func (h *handlerImpl) HandleUpdateShipment(c *gin.Context) {
	id, ok := h.shipmentID(c)
	if !ok {
		return
	}

	var req updateShipmentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	shipment, err := h.services(c).Shipments.Update(c, actorFromContext(c), id, services.UpdateShipmentParams{
		Content:           req.Content,
		Weight:            req.Weight,
		Destination:       req.Destination,
		Status:            req.Status,
		Priority:          req.Priority,
		EstimatedDelivery: req.EstimatedDelivery,
	})
	if err != nil {
		h.abortWithServiceError(c, err, "failed to update shipment")
		return
	}

	h.respond(c, http.StatusOK, newGetShipmentResponse(shipment))
}

func (h *handlerImpl) HandleDeleteShipment(c *gin.Context) {
	id, ok := h.shipmentID(c)
	if !ok {
		return
	}

	shipment, err := h.services(c).Shipments.Archive(c, actorFromContext(c), id)
	if err != nil {
		h.abortWithServiceError(c, err, "failed to archive shipment")
		return
	}

	h.respond(c, http.StatusOK, newGetShipmentResponse(shipment))
}

func optionalWeight(weight float64) *float64 {
	if weight == 0 {
		return nil
	}
	return &weight
}
