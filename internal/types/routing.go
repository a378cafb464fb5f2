package types

import (
	"time"

	"github.com/google/uuid"
)

// Routing is a named process plan for producing a part: a DAG of
// operation nodes connected by directed edges. A routing may be generic
// (PartID nil). At most one routing per part carries IsDefault.
type Routing struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID uuid.UUID  `gorm:"type:uuid;not null;index" json:"company_id"`
	PartID    *uuid.UUID `gorm:"type:uuid;index" json:"part_id,omitempty"`
	Part      *Part      `gorm:"constraint:OnDelete:SET NULL;foreignKey:PartID;references:ID" json:"part,omitempty"`
	Name      string     `gorm:"not null" json:"name"`
	Revision  string     `json:"revision"`
	IsDefault bool       `gorm:"not null;default:false" json:"is_default"`
	CreatedAt time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null" json:"updated_at"`
}

func (Routing) TableName() string { return "routings" }

// RoutingNode is one operation step within a routing. A node has no
// sequence number of its own; its position comes entirely from edges.
type RoutingNode struct {
	ID                       uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	RoutingID                uuid.UUID      `gorm:"type:uuid;not null;index" json:"routing_id"`
	Routing                  *Routing       `gorm:"constraint:OnDelete:CASCADE;foreignKey:RoutingID;references:ID" json:"routing,omitempty"`
	OperationTypeID          *uuid.UUID     `gorm:"type:uuid;index" json:"operation_type_id,omitempty"`
	OperationType            *OperationType `gorm:"foreignKey:OperationTypeID;references:ID" json:"operation_type,omitempty"`
	Name                     string         `gorm:"not null" json:"name"`
	EstimatedSetupHours      float64        `gorm:"column:estimated_setup_hours;not null;default:0" json:"estimated_setup_hours"`
	EstimatedRunHoursPerUnit float64        `gorm:"column:estimated_run_hours_per_unit;not null;default:0" json:"estimated_run_hours_per_unit"`
	Instructions             string         `json:"instructions"`
	CreatedAt                time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt                time.Time      `gorm:"not null" json:"updated_at"`
}

func (RoutingNode) TableName() string { return "routing_nodes" }

// RoutingEdge is a directed dependency between two nodes of the same
// routing. The (routing, source, target) triple is unique; the edge set
// must stay acyclic, which the routing service checks before any write.
type RoutingEdge struct {
	ID           uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	RoutingID    uuid.UUID    `gorm:"type:uuid;not null;index:idx_routing_edge_pair,unique" json:"routing_id"`
	SourceNodeID uuid.UUID    `gorm:"type:uuid;not null;index:idx_routing_edge_pair,unique" json:"source_node_id"`
	TargetNodeID uuid.UUID    `gorm:"type:uuid;not null;index:idx_routing_edge_pair,unique" json:"target_node_id"`
	SourceNode   *RoutingNode `gorm:"constraint:OnDelete:CASCADE;foreignKey:SourceNodeID;references:ID" json:"source_node,omitempty"`
	TargetNode   *RoutingNode `gorm:"constraint:OnDelete:CASCADE;foreignKey:TargetNodeID;references:ID" json:"target_node,omitempty"`
	CreatedAt    time.Time    `gorm:"not null" json:"created_at"`
}

func (RoutingEdge) TableName() string { return "routing_edges" }
