package models

import "strings"

type ChangeType string

const (
	ChangeUse     ChangeType = "USE"
	ChangeReceive ChangeType = "RECEIVE"
	ChangeAdjust  ChangeType = "ADJUST"
	ChangeMiscUse ChangeType = "MISC_USE"
)

// TimestampLayout keeps history timestamps lexicographically sortable.
const TimestampLayout = "2006-01-02 15:04:05"

// UnknownItemName is shown for history rows that resolve to neither a
// product nor a misc item name.
const UnknownItemName = "unknown item"

// legacyChangeTypes maps the labels written by the first spreadsheet
// version of the lab tool.
var legacyChangeTypes = map[string]ChangeType{
	"使用":    ChangeUse,
	"入荷":    ChangeReceive,
	"棚卸調整":  ChangeAdjust,
	"その他使用": ChangeMiscUse,
}

// ParseChangeType accepts both the enum values and the legacy labels.
func ParseChangeType(s string) (ChangeType, bool) {
	s = strings.TrimSpace(s)
	switch ct := ChangeType(strings.ToUpper(s)); ct {
	case ChangeUse, ChangeReceive, ChangeAdjust, ChangeMiscUse:
		return ct, true
	}
	if ct, ok := legacyChangeTypes[s]; ok {
		return ct, true
	}
	return "", false
}

// HistoryEntry is one append-only row of the stock history. Exactly one of
// ProductID and MiscItemName identifies what changed.
type HistoryEntry struct {
	ID           uint       `gorm:"primaryKey" json:"-"`
	Sequence     int64      `gorm:"not null;index" json:"sequence"`
	ProductID    *uint      `gorm:"index" json:"product_id"`
	Product      *Product   `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT" json:"-"`
	MiscItemName string     `gorm:"size:100" json:"misc_item_name,omitempty"`
	UserName     string     `gorm:"size:100;not null" json:"user_name"`
	ChangeType   ChangeType `gorm:"size:20;not null" json:"change_type"`
	Quantity     int        `gorm:"not null" json:"quantity"`
	Timestamp    string     `gorm:"size:19;not null;index" json:"timestamp"`
}

func (HistoryEntry) TableName() string { return "history" }

// HistoryView is a history row joined with the current catalog.
type HistoryView struct {
	HistoryEntry
	Name string `json:"name"`
}
