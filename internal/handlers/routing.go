package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/shopfloor-backend/internal/services"
	"github.com/yungbote/shopfloor-backend/internal/types"
)

type RoutingHandler struct {
	routingService services.RoutingService
}

func NewRoutingHandler(routingService services.RoutingService) *RoutingHandler {
	return &RoutingHandler{routingService: routingService}
}

type createRoutingRequest struct {
	CompanyID uuid.UUID  `json:"company_id" binding:"required"`
	PartID    *uuid.UUID `json:"part_id"`
	Name      string     `json:"name" binding:"required"`
	Revision  string     `json:"revision"`
}

func (rh *RoutingHandler) Create(c *gin.Context) {
	var req createRoutingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "", fmt.Errorf("invalid routing payload: %w", err))
		return
	}
	routing, err := rh.routingService.Create(c.Request.Context(), nil, &types.Routing{
		CompanyID: req.CompanyID,
		PartID:    req.PartID,
		Name:      req.Name,
		Revision:  req.Revision,
	})
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, routing)
}

func (rh *RoutingHandler) GetGraph(c *gin.Context) {
	routingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "", fmt.Errorf("invalid routing id"))
		return
	}
	routing, nodes, edges, err := rh.routingService.GetGraph(c.Request.Context(), nil, routingID)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, gin.H{"routing": routing, "nodes": nodes, "edges": edges})
}

type addEdgeRequest struct {
	SourceNodeID uuid.UUID `json:"source_node_id" binding:"required"`
	TargetNodeID uuid.UUID `json:"target_node_id" binding:"required"`
}

func (rh *RoutingHandler) AddEdge(c *gin.Context) {
	routingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "", fmt.Errorf("invalid routing id"))
		return
	}
	var req addEdgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "", fmt.Errorf("invalid edge payload: %w", err))
		return
	}
	edge, err := rh.routingService.AddEdge(c.Request.Context(), nil, routingID, req.SourceNodeID, req.TargetNodeID)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, edge)
}

func (rh *RoutingHandler) RemoveNode(c *gin.Context) {
	nodeID, err := uuid.Parse(c.Param("nodeID"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "", fmt.Errorf("invalid node id"))
		return
	}
	if err := rh.routingService.RemoveNode(c.Request.Context(), nil, nodeID); err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": nodeID})
}

func (rh *RoutingHandler) SetDefault(c *gin.Context) {
	routingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "", fmt.Errorf("invalid routing id"))
		return
	}
	if err := rh.routingService.SetDefault(c.Request.Context(), nil, routingID); err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, gin.H{"default": routingID})
}

type saveGraphRequest struct {
	Nodes          []*types.RoutingNode `json:"nodes"`
	Edges          []*types.RoutingEdge `json:"edges"`
	DeletedNodeIDs []uuid.UUID          `json:"deleted_node_ids"`
	DeletedEdgeIDs []uuid.UUID          `json:"deleted_edge_ids"`
}

// SaveGraph applies one editor save as a unit. A cycle, duplicate edge
// or orphan reference anywhere in the payload rejects the whole save.
func (rh *RoutingHandler) SaveGraph(c *gin.Context) {
	routingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "", fmt.Errorf("invalid routing id"))
		return
	}
	var req saveGraphRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "", fmt.Errorf("invalid graph payload: %w", err))
		return
	}
	save := services.GraphSave{
		Nodes:          req.Nodes,
		Edges:          req.Edges,
		DeletedNodeIDs: req.DeletedNodeIDs,
		DeletedEdgeIDs: req.DeletedEdgeIDs,
	}
	if err := rh.routingService.SaveGraph(c.Request.Context(), nil, routingID, save); err != nil {
		RespondAPIError(c, err)
		return
	}
	routing, nodes, edges, err := rh.routingService.GetGraph(c.Request.Context(), nil, routingID)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, gin.H{"routing": routing, "nodes": nodes, "edges": edges})
}

type cloneRoutingRequest struct {
	Name     string `json:"name" binding:"required"`
	Revision string `json:"revision"`
}

func (rh *RoutingHandler) Clone(c *gin.Context) {
	routingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "", fmt.Errorf("invalid routing id"))
		return
	}
	var req cloneRoutingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "", fmt.Errorf("invalid clone payload: %w", err))
		return
	}
	clone, err := rh.routingService.Clone(c.Request.Context(), nil, routingID, req.Name, req.Revision)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, clone)
}
