package inspector_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/odoocheck/fixture"
	"github.com/viant/odoocheck/inspector"
	"github.com/viant/odoocheck/inspector/graph"
)

func TestScanner_Scan(t *testing.T) {
	root := fixture.Materialize(t, fixture.Addon)
	module, err := inspector.NewScanner(nil).Scan(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, filepath.Base(root), module.Name)
	assert.Equal(t, "17.0.1.0.0", module.Version)
	assert.Equal(t, []string{"base", "mail", "stock"}, module.Depends)
	assert.Len(t, module.Files, 2)
	assert.Len(t, module.Views, 1)
	assert.Len(t, module.AccessRules, 1)
	assert.Empty(t, module.Errors)

	var names []string
	for _, model := range module.Models() {
		names = append(names, model.Name)
	}
	assert.Equal(t, []string{"records.container", "records.location"}, names)

	container := module.LookupModel("records.container")
	require.NotNil(t, container)
	assert.Equal(t, []string{"mail.thread", "mail.activity.mixin"}, container.Inherit)
	assert.Equal(t, graph.Many2one, container.LookupField("partner_id").Type)
	assert.Equal(t, "records.location", container.LookupField("location_id").Comodel)
	assert.Equal(t, "records.container", module.LookupModel("records.location").LookupField("container_ids").Comodel)

	name, ok := module.ModelByRef("model_records_container")
	assert.True(t, ok)
	assert.Equal(t, "records.container", name)
}

func TestScanner_Scan_MergesExtensions(t *testing.T) {
	root := fixture.Materialize(t, `-- models/base.py --
from odoo import fields, models

class Box(models.Model):
    _name = 'records.box'
    name = fields.Char()
    location_id = fields.Many2one('records.location', string='Location')
-- models/extension.py --
from odoo import fields, models

class BoxExtension(models.Model):
    _inherit = 'records.box'
    barcode = fields.Char()
    location_id = fields.Many2one(tracking=True)
-- models/broken.py --
from odoo import fields, models

class Broken(models.Model
    _name = 'records.broken'
`)
	module, err := inspector.NewScanner(nil).Scan(context.Background(), root)
	require.NoError(t, err)

	box := module.LookupModel("records.box")
	require.NotNil(t, box)
	assert.NotNil(t, box.LookupField("name"))
	assert.NotNil(t, box.LookupField("barcode"))
	location := box.LookupField("location_id")
	require.NotNil(t, location)
	assert.Equal(t, "records.location", location.Comodel)
	assert.Equal(t, "Location", location.String)
	assert.Equal(t, filepath.Join(root, "models", "base.py"), box.File)

	definition, file := module.Definition("records.box")
	require.NotNil(t, definition)
	assert.Equal(t, "base.py", file.Name)

	broken := module.LookupFile(filepath.Join("models", "broken.py"))
	require.NotNil(t, broken)
	assert.True(t, broken.HasErrors())
}

func TestScanner_Scan_NotADirectory(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "file.py")
	require.NoError(t, os.WriteFile(path, []byte("x = 1\n"), 0o644))
	_, err := inspector.NewScanner(nil).Scan(context.Background(), path)
	assert.Error(t, err)
}
