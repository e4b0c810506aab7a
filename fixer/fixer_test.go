package fixer_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/odoocheck/auditor"
	"github.com/viant/odoocheck/fixer"
	"github.com/viant/odoocheck/fixture"
	"github.com/viant/odoocheck/inspector"
	"github.com/viant/odoocheck/inspector/graph"
	"github.com/viant/odoocheck/inspector/python"
	"github.com/viant/odoocheck/logging"
	"go.uber.org/zap/zapcore"
)

func scan(t *testing.T, root string) *graph.Module {
	t.Helper()
	module, err := inspector.NewScanner(nil).Scan(context.Background(), root)
	require.NoError(t, err)
	return module
}

func assertParses(t *testing.T, content string) {
	t.Helper()
	syntaxErrors, err := python.Validate(context.Background(), []byte(content))
	require.NoError(t, err)
	assert.Empty(t, syntaxErrors, content)
}

func TestFixer_AddFields_Idempotent(t *testing.T) {
	ctx := context.Background()
	root := fixture.Materialize(t, fixture.Addon)
	aFixer := fixer.New(nil, nil)

	change, err := aFixer.AddFields(ctx, scan(t, root), "records.container", []string{"barcode", "destruction_certificate_id", "barcode", "name"})
	require.NoError(t, err)
	require.NotNil(t, change)
	assert.True(t, change.Applied)
	assert.Equal(t, []string{"barcode", "destruction_certificate_id"}, change.Fields)

	content := fixture.Read(t, root, "models/records_container.py")
	assertParses(t, content)
	assert.Equal(t, 1, strings.Count(content, fixer.Marker))
	assert.Contains(t, content, "    barcode = fields.Char(string='Barcode')\n")
	assert.Contains(t, content, "    destruction_certificate_id = fields.Many2one('records.destruction.certificate', string='Destruction Certificate')\n")
	// inserted after the last field, before the first method
	assert.Less(t, strings.Index(content, "customer_name = fields"), strings.Index(content, fixer.Marker))
	assert.Less(t, strings.Index(content, fixer.Marker), strings.Index(content, "@api.depends"))

	module := scan(t, root)
	container := module.LookupModel("records.container")
	require.NotNil(t, container.LookupField("barcode"))
	assert.Equal(t, graph.Many2one, container.LookupField("destruction_certificate_id").Type)

	again, err := aFixer.AddFields(ctx, module, "records.container", []string{"barcode", "destruction_certificate_id"})
	require.NoError(t, err)
	assert.Nil(t, again)
	assert.Equal(t, content, fixture.Read(t, root, "models/records_container.py"))

	more, err := aFixer.AddFields(ctx, module, "records.container", []string{"box_qty"})
	require.NoError(t, err)
	require.NotNil(t, more)
	content = fixture.Read(t, root, "models/records_container.py")
	assertParses(t, content)
	assert.Equal(t, 1, strings.Count(content, fixer.Marker))
	assert.Contains(t, content, "box_qty = fields.Integer(string='Box Qty', default=0)")
}

func TestFixer_AddFields_Anchors(t *testing.T) {
	testCases := []struct {
		description string
		source      string
		before      string
		after       string
		imports     string
	}{
		{
			description: "after class attributes",
			source: `from odoo import models


class Box(models.Model):
    _name = 'records.box'
    _order = 'id desc'

    def action(self):
        return True
`,
			before:  "_order = 'id desc'",
			after:   "def action",
			imports: "from odoo import fields, models\n",
		},
		{
			description: "tab indented extension",
			source: `from odoo import models


class Partner(models.Model):
	_inherit = 'res.partner'
`,
			before: "_inherit",
		},
		{
			description: "model imported from odoo.models",
			source: `import logging

from odoo.models import Model

_logger = logging.getLogger(__name__)


class Box(Model):
    _name = 'records.box'
`,
			before:  "_name",
			imports: "from odoo.models import Model\nfrom odoo import fields\n\n_logger",
		},
		{
			description: "odoo import without fields",
			source: `from odoo import api, models


class Box(models.Model):
    _name = 'records.box'
`,
			before:  "_name",
			imports: "from odoo import fields, api, models\n",
		},
		{
			description: "last line without newline",
			source:      "from odoo import fields, models\n\nclass Box(models.Model):\n    _name = 'records.box'\n    name = fields.Char()",
			before:      "name = fields.Char()",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			root := fixture.Materialize(t, "-- models/box.py --\n"+testCase.source)
			module := scan(t, root)
			model := module.Models()[0].Name
			change, err := fixer.New(nil, nil).AddFields(context.Background(), module, model, []string{"barcode"})
			require.NoError(t, err)
			require.NotNil(t, change)
			content := fixture.Read(t, root, "models/box.py")
			assertParses(t, content)
			assert.Less(t, strings.Index(content, testCase.before), strings.Index(content, "barcode ="))
			if testCase.after != "" {
				assert.Less(t, strings.Index(content, "barcode ="), strings.Index(content, testCase.after))
			}
			if testCase.imports != "" {
				assert.Contains(t, content, testCase.imports)
			}
			assert.NotNil(t, scan(t, root).LookupModel(model).LookupField("barcode"))
		})
	}
}

func TestFixer_AddFields_Errors(t *testing.T) {
	root := fixture.Materialize(t, `-- models/broken.py --
from odoo import fields, models

class Broken(models.Model):
    _name = 'records.broken'
    name = fields.Char(
`)
	module := scan(t, root)
	aFixer := fixer.New(nil, nil)
	_, err := aFixer.AddFields(context.Background(), module, "records.missing", []string{"barcode"})
	assert.ErrorIs(t, err, fixer.ErrModelNotFound)

	if module.LookupModel("records.broken") != nil {
		_, err = aFixer.AddFields(context.Background(), module, "records.broken", []string{"barcode"})
		assert.ErrorIs(t, err, fixer.ErrMalformedSource)
	}
}

func TestFixer_DryRun(t *testing.T) {
	root := fixture.Materialize(t, fixture.Addon)
	original := fixture.Read(t, root, "models/records_container.py")
	logger := logging.NewTestLogger()
	aFixer := fixer.New(&fixer.Config{DryRun: true}, logger.Logger)

	change, err := aFixer.AddFields(context.Background(), scan(t, root), "records.container", []string{"barcode"})
	require.NoError(t, err)
	require.NotNil(t, change)
	assert.False(t, change.Applied)
	assert.Contains(t, string(change.Content), "barcode = fields.Char")
	assert.Equal(t, original, fixture.Read(t, root, "models/records_container.py"))
	logger.AssertLogged(t, zapcore.InfoLevel, "dry run")
}

func TestFixer_AddMissingFields_FromAudit(t *testing.T) {
	ctx := context.Background()
	root := fixture.Materialize(t, fixture.Addon)
	module := scan(t, root)
	report := auditor.New(nil, nil).Audit(ctx, module)

	changes, err := fixer.New(nil, nil).AddMissingFields(ctx, module, report.MissingFields(module))
	require.NoError(t, err)
	require.Len(t, changes, 1)

	after := auditor.New(nil, nil).Audit(ctx, scan(t, root))
	assert.Empty(t, after.Filter(auditor.CheckViewFields))
	assert.Empty(t, after.Filter(auditor.CheckMappedCalls))
}

func TestFixer_CreateModel(t *testing.T) {
	ctx := context.Background()
	root := fixture.Materialize(t, fixture.Addon)
	module := scan(t, root)
	aFixer := fixer.New(&fixer.Config{ModelPrefix: "records"}, nil)

	inverse := &fixer.Definition{Name: "container_id", Type: graph.Many2one, Comodel: "records.container", Label: "Container"}
	changes, err := aFixer.CreateModel(ctx, module, "records.document", []*fixer.Definition{inverse})
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, fixer.KindCreateModel, changes[0].Kind)
	assert.Equal(t, fixer.KindRegisterImport, changes[1].Kind)

	content := fixture.Read(t, root, "models/records_document.py")
	assertParses(t, content)
	assert.Contains(t, content, "class RecordsDocument(models.Model):")
	assert.Contains(t, content, "container_id = fields.Many2one('records.container', string='Container')")
	assert.Contains(t, fixture.Read(t, root, "models/__init__.py"), "from . import records_document\n")

	_, err = aFixer.CreateModel(ctx, module, "records.document", nil)
	assert.ErrorIs(t, err, fixer.ErrFileExists)

	_, err = aFixer.CreateModel(ctx, module, "stock.custom", nil)
	assert.Error(t, err)

	rescanned := scan(t, root)
	document := rescanned.LookupModel("records.document")
	require.NotNil(t, document)
	report := auditor.New(nil, nil).Audit(ctx, rescanned)
	assert.Empty(t, report.Filter(auditor.CheckRelationship))
}

func TestFixer_CleanArtifacts(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	path := filepath.Join(root, "box.py")
	source := "\xEF\xBB\xBF# filepath: models/box.py\r\n```python\r\nfrom odoo import models   \r\n\r\n\r\nclass Box(models.Model):\r\n    _name = 'records.box'\t\r\n```\r\n"
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))

	change, err := fixer.New(nil, nil).CleanArtifacts(ctx, path)
	require.NoError(t, err)
	require.NotNil(t, change)
	assert.True(t, change.Applied)
	assert.Len(t, change.Notes, 5)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "from odoo import models\n\n\nclass Box(models.Model):\n    _name = 'records.box'\n", string(content))

	again, err := fixer.New(nil, nil).CleanArtifacts(ctx, path)
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestCleanPython_StringLiterals(t *testing.T) {
	testCases := []struct {
		description string
		source      string
		expect      string
		notes       []string
	}{
		{
			description: "fence and trailing spaces inside a help text",
			source: "from odoo import fields, models\n\n\nclass Box(models.Model):\n    _name = 'records.box'\n" +
				"    name = fields.Char(help=\"\"\"Usage:\n```python\nrecord.action()\n```\nkeep  \n\"\"\")   \n",
			expect: "from odoo import fields, models\n\n\nclass Box(models.Model):\n    _name = 'records.box'\n" +
				"    name = fields.Char(help=\"\"\"Usage:\n```python\nrecord.action()\n```\nkeep  \n\"\"\")\n",
			notes: []string{"trimmed trailing whitespace on 1 line(s)"},
		},
		{
			description: "closing fence after a docstring holding one",
			source:      "class Box:\n    \"\"\"Box.\n\n```\n    \"\"\"\n\n```\n",
			expect:      "class Box:\n    \"\"\"Box.\n\n```\n    \"\"\"\n",
			notes:       []string{"removed 1 markdown fence line(s)"},
		},
	}

	for _, testCase := range testCases {
		content, notes, err := fixer.CleanPython(context.Background(), []byte(testCase.source))
		require.NoError(t, err, testCase.description)
		assert.Equal(t, testCase.expect, string(content), testCase.description)
		assert.Equal(t, testCase.notes, notes, testCase.description)
	}
}

func TestClean_ConflictMarkers(t *testing.T) {
	source := "x = 1\n<<<<<<< HEAD\ny = 2\n=======\ny = 3\n>>>>>>> feature\n"
	content, notes := fixer.Clean([]byte(source))
	assert.Equal(t, source, string(content))
	assert.Equal(t, []string{
		"merge conflict marker at line 2",
		"merge conflict marker at line 4",
		"merge conflict marker at line 6",
	}, notes)
}

func TestFixer_CleanModule(t *testing.T) {
	root := fixture.Materialize(t, fixture.Addon)
	fixture.Write(t, root, "-- views/extra.xml --\n<odoo>  \r\n</odoo>\r\n")
	changes, err := fixer.New(nil, nil).CleanModule(context.Background(), scan(t, root))
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, filepath.Join(root, "views", "extra.xml"), changes[0].Path)
	assert.Equal(t, "<odoo>\n</odoo>\n", fixture.Read(t, root, "views/extra.xml"))
}

func TestFixer_AddAccessRules(t *testing.T) {
	ctx := context.Background()
	root := fixture.Materialize(t, fixture.Addon)
	aFixer := fixer.New(&fixer.Config{ManagerGroup: "records_management.group_records_manager"}, nil)

	change, err := aFixer.AddAccessRules(ctx, scan(t, root))
	require.NoError(t, err)
	require.NotNil(t, change)
	assert.Equal(t, []string{"access_records_location_user", "access_records_location_manager"}, change.Rules)
	content := fixture.Read(t, root, "security/ir.model.access.csv")
	assert.Contains(t, content, "access_records_location_manager,records.location.manager,model_records_location,records_management.group_records_manager,1,1,1,1\n")

	module := scan(t, root)
	assert.Len(t, module.AccessRules, 3)
	assert.Empty(t, auditor.New(nil, nil).Audit(ctx, module).Filter(auditor.CheckAccessRules))

	again, err := aFixer.AddAccessRules(ctx, module)
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestFixer_AddAccessRules_CreatesFile(t *testing.T) {
	root := fixture.Materialize(t, `-- models/wizard.py --
from odoo import fields, models

class Wizard(models.TransientModel):
    _name = 'records.wizard'
`)
	change, err := fixer.New(nil, nil).AddAccessRules(context.Background(), scan(t, root))
	require.NoError(t, err)
	require.NotNil(t, change)
	assert.NotEmpty(t, change.Notes)
	assert.Equal(t, "id,name,model_id:id,group_id:id,perm_read,perm_write,perm_create,perm_unlink\n"+
		"access_records_wizard_user,records.wizard.user,model_records_wizard,base.group_user,1,1,1,1\n",
		fixture.Read(t, root, "security/ir.model.access.csv"))
}
