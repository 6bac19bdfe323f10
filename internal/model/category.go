package model

import (
	"time"

	"gorm.io/datatypes"
)

// AttributeType is the value type of a dynamic category attribute.
type AttributeType string

const (
	AttributeTypeString AttributeType = "string"
	AttributeTypeNumber AttributeType = "number"
	AttributeTypeSelect AttributeType = "select"
	AttributeTypeBool   AttributeType = "bool"
)

// Category is one node in the category tree.
type Category struct {
	ID       int64  `gorm:"primaryKey" json:"id"`
	ParentID *int64 `gorm:"index" json:"parent_id,omitempty"`

	Name      string `gorm:"size:100;not null" json:"name"`
	Slug      string `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	Icon      string `gorm:"size:50" json:"icon,omitempty"`
	SortOrder int    `gorm:"not null;default:0" json:"sort_order"`
	IsActive  bool   `gorm:"not null;default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`

	Attributes []CategoryAttribute `gorm:"foreignKey:CategoryID" json:"attributes,omitempty"`
	Children   []Category          `gorm:"foreignKey:ParentID" json:"children,omitempty"`
}

// TableName implements gorm's table naming.
func (Category) TableName() string { return "categories" }

// CategoryAttribute defines one dynamic attribute listings in the
// category may carry (the EAV schema side).
type CategoryAttribute struct {
	ID         int64 `gorm:"primaryKey" json:"id"`
	CategoryID int64 `gorm:"not null;index" json:"category_id"`

	Key  string        `gorm:"size:50;not null" json:"key"`
	Name string        `gorm:"size:100;not null" json:"name"`
	Type AttributeType `gorm:"size:20;not null;default:string" json:"type"`

	// Choice values for select attributes.
	Options datatypes.JSONSlice[string] `json:"options,omitempty"`

	Required  bool `gorm:"not null;default:false" json:"required"`
	SortOrder int  `gorm:"not null;default:0" json:"sort_order"`
}

// TableName implements gorm's table naming.
func (CategoryAttribute) TableName() string { return "category_attributes" }
