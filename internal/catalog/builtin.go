package catalog

import "github.com/oakledger/beacon/internal/model"

// builtin is the template catalog shipped with the client. Loaded once per
// session; there is no durable client-side mutation path.
var builtin = []model.Template{
	{
		ID:        "transaction_received",
		Category:  model.CategoryTransaction,
		Title:     "Payment received",
		Body:      "{{amount}} received from {{sender}}",
		Icon:      "arrow-down-circle",
		Color:     "#16A34A",
		Sound:     "chime",
		Variables: []string{"amount", "sender"},
		Actions: []model.TemplateAction{
			{ID: model.ActionView, Label: "View"},
		},
	},
	{
		ID:        "transaction_sent",
		Category:  model.CategoryTransaction,
		Title:     "Payment sent",
		Body:      "{{amount}} sent to {{recipient}}",
		Icon:      "arrow-up-circle",
		Color:     "#2563EB",
		Sound:     "chime",
		Variables: []string{"amount", "recipient"},
		Actions: []model.TemplateAction{
			{ID: model.ActionView, Label: "View"},
		},
	},
	{
		ID:        "recharge_approved",
		Category:  model.CategoryRecharge,
		Title:     "Recharge approved",
		Body:      "Your recharge of {{amount}} was approved",
		Icon:      "check-circle",
		Color:     "#16A34A",
		Sound:     "chime",
		Variables: []string{"amount"},
	},
	{
		ID:        "recharge_rejected",
		Category:  model.CategoryRecharge,
		Title:     "Recharge rejected",
		Body:      "Your recharge of {{amount}} was rejected: {{reason}}",
		Icon:      "x-circle",
		Color:     "#DC2626",
		Sound:     "alert",
		Vibration: []int{300, 100, 300},
		Variables: []string{"amount", "reason"},
	},
	{
		ID:        "validation_pending",
		Category:  model.CategoryValidation,
		Title:     "Validation required",
		Body:      "{{requester}} requests validation of {{subject}}",
		Icon:      "shield-question",
		Color:     "#D97706",
		Sound:     "alert",
		Vibration: []int{300, 100, 300, 100, 300},
		Variables: []string{"requester", "subject"},
		Actions: []model.TemplateAction{
			{ID: model.ActionValidate, Label: "Validate"},
			{ID: model.ActionReject, Label: "Reject"},
		},
	},
	{
		ID:        "security_alert",
		Category:  model.CategorySecurity,
		Title:     "Security alert",
		Body:      "{{detail}}",
		Icon:      "shield-alert",
		Color:     "#DC2626",
		Sound:     "alarm",
		Vibration: []int{500, 200, 500},
		Variables: []string{"detail"},
		Actions: []model.TemplateAction{
			{ID: model.ActionSecure, Label: "Secure account"},
		},
	},
	{
		ID:       "system_notice",
		Category: model.CategorySystem,
		Title:    "OakLedger",
		Body:     "{{message}}",
		Icon:     "info",
		Color:    "#64748B",
		Variables: []string{"message"},
	},
}
