package xml_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/odoocheck/inspector/xml"
)

func TestInspector_InspectSource(t *testing.T) {
	source := `<?xml version="1.0" encoding="utf-8"?>
<odoo>
    <record id="view_container_form" model="ir.ui.view">
        <field name="name">records.container.form</field>
        <field name="model">records.container</field>
        <field name="arch" type="xml">
            <form>
                <field name="name"/>
                <field name="document_ids">
                    <tree>
                        <field name="reference"/>
                    </tree>
                </field>
                <field name="partner_id"/>
            </form>
        </field>
    </record>
    <record id="action_container" model="ir.actions.act_window">
        <field name="res_model">records.container</field>
    </record>
</odoo>
`
	views, err := xml.NewInspector(nil).InspectSource([]byte(source))
	require.NoError(t, err)
	require.Len(t, views, 1)
	view := views[0]
	assert.Equal(t, "view_container_form", view.ID)
	assert.Equal(t, "records.container", view.Model)
	var names []string
	for _, field := range view.Fields {
		names = append(names, field.Name)
	}
	assert.Equal(t, []string{"name", "document_ids", "partner_id"}, names)
	assert.Equal(t, 8, view.Fields[0].Line)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		description string
		source      string
		wantErr     bool
	}{
		{description: "well formed", source: `<odoo><record id="a" model="ir.ui.view"/></odoo>`},
		{description: "unclosed element", source: `<odoo><record id="a">`, wantErr: true},
		{description: "mismatched element", source: `<odoo><record></field></odoo>`, wantErr: true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			err := xml.Validate([]byte(testCase.source))
			assert.Equal(t, testCase.wantErr, err != nil)
		})
	}
}
