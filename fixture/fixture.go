// Package fixture materializes addon sources kept as txtar archives for tests
package fixture

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/tools/txtar"
)

// Materialize writes every archive member under a fresh temporary directory and returns it
func Materialize(t testing.TB, archive string) string {
	t.Helper()
	root := t.TempDir()
	Write(t, root, archive)
	return root
}

// Write writes archive members under root, overwriting existing files
func Write(t testing.TB, root string, archive string) {
	t.Helper()
	parsed := txtar.Parse([]byte(archive))
	for _, member := range parsed.Files {
		target := filepath.Join(root, filepath.FromSlash(member.Name))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			t.Fatalf("failed to create %s: %v", filepath.Dir(target), err)
		}
		if err := os.WriteFile(target, member.Data, 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", target, err)
		}
	}
}

// Read returns the content of an addon relative file
func Read(t testing.TB, root, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(name)))
	if err != nil {
		t.Fatalf("failed to read %s: %v", name, err)
	}
	return string(data)
}

// Addon is a small records management addon used across package tests
const Addon = `-- __manifest__.py --
{
    'name': 'Records Management',
    'version': '17.0.1.0.0',
    'depends': ['base', 'mail', 'stock'],
    'data': [
        'security/ir.model.access.csv',
        'views/records_container_views.xml',
    ],
    'installable': True,
}
-- models/__init__.py --
from . import records_container
from . import records_location
-- models/records_container.py --
from odoo import api, fields, models


class RecordsContainer(models.Model):
    _name = 'records.container'
    _description = 'Records Container'
    _inherit = ['mail.thread', 'mail.activity.mixin']

    name = fields.Char(string='Container Number', required=True)
    partner_id = fields.Many2one('res.partner', string='Customer')
    location_id = fields.Many2one('records.location', string='Location')
    document_ids = fields.One2many('records.document', 'container_id', string='Documents')
    document_count = fields.Integer(compute='_compute_document_count')
    customer_name = fields.Char(compute='_compute_customer_name')

    @api.depends('document_ids')
    def _compute_document_count(self):
        for record in self:
            record.document_count = len(record.document_ids)

    @api.depends('partner_id.name')
    def _compute_customer_name(self):
        for record in self:
            record.customer_name = record.partner_id.name

    def action_destroy(self):
        certificates = self.mapped('destruction_certificate_id')
        names = self.mapped(lambda r: r.name)
        return certificates, names
-- models/records_location.py --
from odoo import fields, models


class RecordsLocation(models.Model):
    _name = 'records.location'
    _description = 'Records Location'

    name = fields.Char(required=True)
    container_ids = fields.One2many('records.container', 'location_id')
-- security/ir.model.access.csv --
id,name,model_id:id,group_id:id,perm_read,perm_write,perm_create,perm_unlink
access_records_container_user,records.container.user,model_records_container,base.group_user,1,1,1,0
-- views/records_container_views.xml --
<?xml version="1.0" encoding="utf-8"?>
<odoo>
    <record id="view_records_container_form" model="ir.ui.view">
        <field name="name">records.container.form</field>
        <field name="model">records.container</field>
        <field name="arch" type="xml">
            <form>
                <field name="name"/>
                <field name="partner_id"/>
                <field name="barcode"/>
                <field name="document_ids">
                    <tree>
                        <field name="reference"/>
                    </tree>
                </field>
            </form>
        </field>
    </record>
</odoo>
`
