package auditor

// knownExternalModels lists core and standard addon models that are never scanned locally
var knownExternalModels = []string{
	// base
	"res.partner", "res.partner.category", "res.partner.bank", "res.partner.title", "res.users",
	"res.groups", "res.company", "res.currency", "res.country", "res.country.state", "res.bank",
	"res.lang", "res.config.settings",
	"ir.attachment", "ir.model", "ir.model.fields", "ir.sequence", "ir.ui.view", "ir.ui.menu",
	"ir.actions.act_window", "ir.actions.report", "ir.actions.server", "ir.cron", "ir.rule",
	"ir.config_parameter", "ir.model.data",
	// mail and portal
	"mail.thread", "mail.activity.mixin", "mail.message", "mail.activity", "mail.activity.type",
	"mail.followers", "mail.template", "mail.mail", "mail.alias", "portal.mixin", "image.mixin",
	"utm.mixin", "rating.mixin",
	// product, stock, uom
	"product.product", "product.template", "product.category", "product.pricelist",
	"uom.uom", "uom.category",
	"stock.location", "stock.picking", "stock.picking.type", "stock.move", "stock.move.line",
	"stock.quant", "stock.warehouse", "stock.lot", "stock.route",
	// sales, purchase, accounting
	"sale.order", "sale.order.line", "purchase.order", "purchase.order.line",
	"account.move", "account.move.line", "account.payment", "account.journal", "account.tax",
	"account.account", "account.analytic.account", "account.analytic.line", "account.payment.term",
	"account.fiscal.position",
	// services
	"hr.employee", "hr.department", "hr.job", "project.project", "project.task", "calendar.event",
	"crm.lead", "crm.team", "fleet.vehicle", "maintenance.equipment", "maintenance.request",
	"helpdesk.ticket", "helpdesk.team", "documents.document", "sign.request", "pos.order",
	"website", "barcode.nomenclature", "resource.calendar", "resource.resource",
}

// magicFields are present on every model
var magicFields = map[string]bool{
	"id": true, "display_name": true, "create_date": true, "create_uid": true,
	"write_date": true, "write_uid": true,
}

// mixinFields are fields contributed by inheriting a well known mixin
var mixinFields = map[string][]string{
	"mail.thread": {
		"message_ids", "message_follower_ids", "message_partner_ids", "message_is_follower",
		"has_message", "message_needaction", "message_needaction_counter", "message_has_error",
		"message_has_error_counter", "message_attachment_count", "website_message_ids",
		"message_main_attachment_id", "message_has_sms_error",
	},
	"mail.activity.mixin": {
		"activity_ids", "activity_state", "activity_user_id", "activity_type_id",
		"activity_type_icon", "activity_date_deadline", "my_activity_date_deadline",
		"activity_summary", "activity_exception_decoration", "activity_exception_icon",
		"activity_calendar_event_id",
	},
	"portal.mixin": {"access_url", "access_token", "access_warning"},
	"image.mixin":  {"image_1920", "image_1024", "image_512", "image_256", "image_128"},
	"utm.mixin":    {"campaign_id", "source_id", "medium_id"},
}

// registry wraps the allow lists with configured additions
type registry struct {
	external map[string]bool
	mixins   map[string]map[string]bool
}

func newRegistry(extra []string) *registry {
	result := &registry{external: map[string]bool{}, mixins: map[string]map[string]bool{}}
	for _, name := range knownExternalModels {
		result.external[name] = true
	}
	for _, name := range extra {
		result.external[name] = true
	}
	for mixin, fields := range mixinFields {
		result.mixins[mixin] = map[string]bool{}
		for _, field := range fields {
			result.mixins[mixin][field] = true
		}
	}
	return result
}

// IsExternal reports whether a model is in the known external allow list
func (r *registry) IsExternal(name string) bool {
	return r.external[name]
}

// KnownExternalModels returns the built-in allow list of core model names
func KnownExternalModels() []string {
	result := make([]string, len(knownExternalModels))
	copy(result, knownExternalModels)
	return result
}
