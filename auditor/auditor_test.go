package auditor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/odoocheck/auditor"
	"github.com/viant/odoocheck/fixture"
	"github.com/viant/odoocheck/inspector"
	"github.com/viant/odoocheck/inspector/graph"
	"github.com/viant/odoocheck/logging"
	"go.uber.org/zap/zapcore"
)

func scan(t *testing.T, archive string) *graph.Module {
	t.Helper()
	root := fixture.Materialize(t, archive)
	module, err := inspector.NewScanner(nil).Scan(context.Background(), root)
	require.NoError(t, err)
	return module
}

func TestAuditor_Audit_Addon(t *testing.T) {
	module := scan(t, fixture.Addon)
	logger := logging.NewTestLogger()
	report := auditor.New(nil, logger.Logger).Audit(context.Background(), module)

	assert.Equal(t, 4, report.Summary.TotalIssues)
	assert.Equal(t, 1, report.Summary.High)
	assert.Equal(t, 2, report.Summary.Medium)
	assert.Equal(t, 1, report.Summary.Low)
	assert.Equal(t, 2, report.Summary.ModelsScanned)
	assert.Equal(t, 2, report.Summary.FilesScanned)
	logger.AssertLogged(t, zapcore.InfoLevel, "audit completed")

	require.Len(t, report.Issues, 4)
	high := report.IssuesBySeverity[auditor.High][0]
	assert.Equal(t, auditor.RuleUnknownComodel, high.Rule)
	assert.Equal(t, "records.document", high.Expression)
	assert.Equal(t, "models/records_container.py", high.File)
	assert.Equal(t, 12, high.Line)

	mapped := report.Filter(auditor.CheckMappedCalls)
	require.Len(t, mapped, 1)
	assert.Equal(t, "destruction_certificate_id", mapped[0].MissingField)
	assert.Equal(t, "records.container", mapped[0].Model)
	assert.Equal(t, auditor.Medium, mapped[0].Severity)

	views := report.Filter(auditor.CheckViewFields)
	require.Len(t, views, 1)
	assert.Equal(t, "barcode", views[0].MissingField)

	access := report.Filter(auditor.CheckAccessRules)
	require.Len(t, access, 1)
	assert.Equal(t, "records.location", access[0].Model)
	assert.Equal(t, auditor.Low, access[0].Severity)

	assert.Equal(t, map[string][]string{
		"records.container": {"destruction_certificate_id", "barcode"},
	}, report.MissingFields(module))

	var resolutions = map[string]auditor.Resolution{}
	for _, ref := range report.Relationships {
		resolutions[ref.Field] = ref.Resolution
	}
	assert.Equal(t, auditor.ResolvedExternal, resolutions["partner_id"])
	assert.Equal(t, auditor.ResolvedScanned, resolutions["location_id"])
	assert.Equal(t, auditor.Unresolved, resolutions["document_ids"])
}

func TestAuditor_CheckAPIDepends(t *testing.T) {
	testCases := []struct {
		description string
		source      string
		config      *auditor.Config
		expect      []auditor.Rule
		missing     string
	}{
		{
			description: "related path through external comodel",
			source: `from odoo import api, fields, models

class Box(models.Model):
    _name = 'records.box'
    partner_id = fields.Many2one('res.partner')
    label = fields.Char(compute='_compute_label')

    @api.depends('partner_id.name')
    def _compute_label(self):
        pass
`,
		},
		{
			description: "missing first segment",
			source: `from odoo import api, fields, models

class Box(models.Model):
    _name = 'records.box'
    label = fields.Char(compute='_compute_label')

    @api.depends('barcode')
    def _compute_label(self):
        pass
`,
			expect:  []auditor.Rule{auditor.RuleDependsFieldMissing},
			missing: "barcode",
		},
		{
			description: "missing segment on scanned comodel",
			source: `from odoo import api, fields, models

class Box(models.Model):
    _name = 'records.box'
    _inherit = ['mail.thread']
    location_id = fields.Many2one('records.location')
    label = fields.Char(compute='_compute_label')

    @api.depends('location_id.code', 'create_date', 'message_ids')
    def _compute_label(self):
        pass

class Location(models.Model):
    _name = 'records.location'
    name = fields.Char()
`,
			expect:  []auditor.Rule{auditor.RuleDependsRelatedMissed},
			missing: "code",
		},
		{
			description: "segments beyond depth are ignored",
			source: `from odoo import api, fields, models

class Box(models.Model):
    _name = 'records.box'
    location_id = fields.Many2one('records.location')
    label = fields.Char(compute='_compute_label')

    @api.depends('location_id.parent_id.code')
    def _compute_label(self):
        pass

class Location(models.Model):
    _name = 'records.location'
    parent_id = fields.Many2one('records.location')
`,
		},
		{
			description: "deeper validation when configured",
			source: `from odoo import api, fields, models

class Box(models.Model):
    _name = 'records.box'
    location_id = fields.Many2one('records.location')
    label = fields.Char(compute='_compute_label')

    @api.depends('location_id.parent_id.code')
    def _compute_label(self):
        pass

class Location(models.Model):
    _name = 'records.location'
    parent_id = fields.Many2one('records.location')
`,
			config:  &auditor.Config{MaxDependsDepth: 3},
			expect:  []auditor.Rule{auditor.RuleDependsRelatedMissed},
			missing: "code",
		},
		{
			description: "extension of external model accepts core fields",
			source: `from odoo import api, fields, models

class Partner(models.Model):
    _inherit = 'res.partner'
    box_count = fields.Integer(compute='_compute_box_count')

    @api.depends('child_ids')
    def _compute_box_count(self):
        pass
`,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			module := scan(t, "-- models/box.py --\n"+testCase.source)
			issues := auditor.New(testCase.config, nil).CheckAPIDepends(module)
			var rules []auditor.Rule
			for _, issue := range issues {
				rules = append(rules, issue.Rule)
			}
			assert.Equal(t, testCase.expect, rules)
			if testCase.missing != "" && assert.Len(t, issues, 1) {
				assert.Equal(t, testCase.missing, issues[0].MissingField)
			}
		})
	}
}

func TestAuditor_CheckMappedCalls(t *testing.T) {
	module := scan(t, `-- models/box.py --
from odoo import fields, models

class Box(models.Model):
    _name = 'records.box'
    location_id = fields.Many2one('records.location')
    partner_id = fields.Many2one('res.partner')

    def action(self):
        self.mapped(lambda r: r.unknown_value)
        self.mapped(self._get_name())
        self.mapped('location_id.name')
        self.location_id.mapped('shelf_code')
        self.partner_id.mapped('email')
        for rec in self:
            rec.mapped('missing_on_box')
        others = self.env['records.box'].search([])
        others.mapped('name')
        others.mapped('nowhere_field')

class Location(models.Model):
    _name = 'records.location'
    name = fields.Char()
`)
	issues := auditor.New(nil, nil).CheckMappedCalls(module)
	require.Len(t, issues, 3)

	byField := map[string]*auditor.Issue{}
	for _, issue := range issues {
		byField[issue.Expression] = issue
	}
	assert.Equal(t, "records.location", byField["shelf_code"].Model)
	assert.Equal(t, auditor.Medium, byField["shelf_code"].Severity)
	assert.Equal(t, "records.box", byField["missing_on_box"].Model)
	assert.Equal(t, auditor.Low, byField["nowhere_field"].Severity)
	assert.Empty(t, byField["nowhere_field"].MissingField)
}

func TestAuditor_CheckMappedCalls_LoopTargets(t *testing.T) {
	module := scan(t, `-- models/order.py --
from odoo import fields, models

class Order(models.Model):
    _name = 'records.order'
    name = fields.Char()
    active = fields.Boolean()
    line_ids = fields.One2many('records.order.line', 'order_id')

    def action(self):
        for rec in self.line_ids:
            rec.mapped('amount')
            rec.mapped('missing_total')
        for order in self:
            for line in order.line_ids:
                line.mapped('amount')
        for rec in self.filtered(lambda r: r.active):
            rec.mapped('missing_on_order')
        for rec in self.env['records.order.line'].search([]):
            rec.mapped('nowhere_field')

    def helper(self, rec):
        return rec.mapped('amount')

class OrderLine(models.Model):
    _name = 'records.order.line'
    order_id = fields.Many2one('records.order')
    amount = fields.Float()
`)
	testCases := []struct {
		description string
		expression  string
		model       string
		severity    auditor.Severity
	}{
		{description: "loop over a relation resolves the comodel", expression: "missing_total", model: "records.order.line", severity: auditor.Medium},
		{description: "loop over filtered self resolves the owner", expression: "missing_on_order", model: "records.order", severity: auditor.Medium},
		{description: "loop over a search is another receiver", expression: "nowhere_field", severity: auditor.Low},
	}

	issues := auditor.New(nil, nil).CheckMappedCalls(module)
	require.Len(t, issues, len(testCases))
	byField := map[string]*auditor.Issue{}
	for _, issue := range issues {
		byField[issue.Expression] = issue
	}
	for _, testCase := range testCases {
		issue, ok := byField[testCase.expression]
		if !assert.True(t, ok, testCase.description) {
			continue
		}
		assert.Equal(t, testCase.model, issue.Model, testCase.description)
		assert.Equal(t, testCase.severity, issue.Severity, testCase.description)
	}

	report := auditor.New(nil, nil).Audit(context.Background(), module)
	missing := report.MissingFields(module, auditor.CheckMappedCalls)
	assert.Equal(t, map[string][]string{
		"records.order":      {"missing_on_order"},
		"records.order.line": {"missing_total"},
	}, missing)
}

func TestAuditor_CheckRelationshipFields(t *testing.T) {
	module := scan(t, `-- models/box.py --
from odoo import fields, models

class Box(models.Model):
    _name = 'records.box'
    item_ids = fields.One2many('records.item', 'box_id')
    shelf_ids = fields.One2many('records.item')
    tag_ids = fields.Many2many('records.tag')
    country_id = fields.Many2one(related='partner_id.country_id')
    broken_id = fields.Many2one(string='Broken')

class Item(models.Model):
    _name = 'records.item'
    name = fields.Char()
`)
	issues := auditor.New(nil, nil).CheckRelationshipFields(module)
	rules := map[auditor.Rule]*auditor.Issue{}
	for _, issue := range issues {
		rules[issue.Rule] = issue
	}
	require.Len(t, issues, 4)
	assert.Equal(t, "box_id", rules[auditor.RuleMissingInverse].MissingField)
	assert.Equal(t, "records.item", rules[auditor.RuleMissingInverse].Model)
	assert.Equal(t, "shelf_ids", rules[auditor.RuleMissingInverseName].Expression)
	assert.Equal(t, "records.tag", rules[auditor.RuleUnknownComodel].Expression)
	assert.Equal(t, "broken_id", rules[auditor.RuleMissingComodel].Expression)
	assert.Equal(t, auditor.High, rules[auditor.RuleMissingComodel].Severity)

	external := auditor.New(&auditor.Config{ExternalModels: []string{"records.tag"}}, nil).CheckRelationshipFields(module)
	assert.Len(t, external, 3)
}

func TestAuditor_ExtensionOverrides(t *testing.T) {
	testCases := []struct {
		description string
		archive     string
	}{
		{
			description: "override of an external model field",
			archive: `-- models/partner.py --
from odoo import fields, models

class Partner(models.Model):
    _inherit = 'res.partner'
    user_id = fields.Many2one(tracking=True)
`,
		},
		{
			description: "override of a scanned model field keeps its comodel",
			archive: `-- models/box.py --
from odoo import api, fields, models

class Box(models.Model):
    _name = 'records.box'
    location_id = fields.Many2one('records.location')
    location_name = fields.Char(compute='_compute_location_name')

    @api.depends('location_id.name')
    def _compute_location_name(self):
        for rec in self:
            rec.location_name = rec.location_id.name
        self.location_id.mapped('name')

class Location(models.Model):
    _name = 'records.location'
    name = fields.Char()
-- models/box_extension.py --
from odoo import fields, models

class BoxExtension(models.Model):
    _inherit = 'records.box'
    location_id = fields.Many2one(tracking=True)
`,
		},
	}

	for _, testCase := range testCases {
		module := scan(t, testCase.archive)
		anAuditor := auditor.New(nil, nil)
		assert.Empty(t, anAuditor.CheckRelationshipFields(module), testCase.description)
		assert.Empty(t, anAuditor.CheckAPIDepends(module), testCase.description)
		assert.Empty(t, anAuditor.CheckMappedCalls(module), testCase.description)
	}
}

func TestAuditor_CheckSyntaxAndAccess(t *testing.T) {
	module := scan(t, `-- models/broken.py --
from odoo import fields, models

class Broken(models.Model
    _name = 'records.broken'
-- models/wizard.py --
from odoo import fields, models

class Wizard(models.TransientModel):
    _name = 'records.wizard'

class Mixin(models.AbstractModel):
    _name = 'records.mixin'
-- security/ir.model.access.csv --
id,name,model_id:id,group_id:id,perm_read,perm_write,perm_create,perm_unlink
access_partner,partner,base.model_res_partner,base.group_user,1,0,0,0
access_ghost,ghost,model_records_ghost,base.group_user,1,0,0,0
`)
	a := auditor.New(nil, nil)
	syntax := a.CheckSyntax(module)
	require.Len(t, syntax, 1)
	assert.Equal(t, auditor.FileError, syntax[0].Category)
	assert.Equal(t, "models/broken.py", syntax[0].File)

	access := a.CheckAccessRules(module)
	rules := map[auditor.Rule][]string{}
	for _, issue := range access {
		rules[issue.Rule] = append(rules[issue.Rule], issue.Model+issue.Expression)
	}
	assert.Equal(t, []string{"model_records_ghost"}, rules[auditor.RuleAccessUnknownModel])
	assert.Contains(t, rules[auditor.RuleAccessMissing], "records.wizard")
	assert.NotContains(t, rules[auditor.RuleAccessMissing], "records.mixin")
}

func TestReport_TotalInvariant(t *testing.T) {
	report := auditor.NewReport(&graph.Module{Name: "empty"})
	report.Add(
		&auditor.Issue{Severity: auditor.High, File: "b.py"},
		&auditor.Issue{Severity: auditor.Low, File: "a.py"},
		&auditor.Issue{Severity: "", File: "c.py"},
		&auditor.Issue{Severity: auditor.Medium, File: "a.py"},
	)
	report.Finalize()
	summary := report.Summary
	assert.Equal(t, summary.TotalIssues, summary.High+summary.Medium+summary.Low)
	assert.Equal(t, 4, summary.TotalIssues)
	assert.Equal(t, 2, summary.Low)
	assert.Equal(t, auditor.High, report.Issues[0].Severity)
	assert.Equal(t, "a.py", report.Issues[2].File)
}

func TestSeverityOf(t *testing.T) {
	assert.Equal(t, auditor.High, auditor.SeverityOf(auditor.RuleUnknownComodel))
	assert.Equal(t, auditor.Medium, auditor.SeverityOf(auditor.RuleViewFieldMissing))
	assert.Equal(t, auditor.Low, auditor.SeverityOf(auditor.Rule("unknown")))
	assert.Contains(t, auditor.KnownExternalModels(), "res.partner")
}
