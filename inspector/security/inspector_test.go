package security_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/odoocheck/inspector/security"
)

func TestInspectSource(t *testing.T) {
	source := "id,name,model_id:id,group_id:id,perm_read,perm_write,perm_create,perm_unlink\n" +
		"access_records_container_user,records.container.user,model_records_container,base.group_user,1,1,1,0\n" +
		"access_partner,res.partner.records,base.model_res_partner,,1,0,0,0\n"
	rules, err := security.InspectSource([]byte(source))
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "model_records_container", rules[0].ModelRef)
	assert.True(t, rules[0].PermCreate)
	assert.False(t, rules[0].PermUnlink)
	assert.Equal(t, 2, rules[0].Line)
	assert.Equal(t, "model_res_partner", security.ModelName(rules[1].ModelRef))
	assert.Equal(t, []string{"access_partner", "res.partner.records", "base.model_res_partner", "", "1", "0", "0", "0"}, security.Row(rules[1]))
}

func TestInspectSource_Errors(t *testing.T) {
	testCases := []struct {
		description string
		source      string
	}{
		{description: "missing model column", source: "id,name\naccess_x,x\n"},
		{description: "short row", source: "id,name,model_id:id,group_id:id,perm_read,perm_write,perm_create,perm_unlink\naccess_x,x,model_x\n"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			_, err := security.InspectSource([]byte(testCase.source))
			assert.Error(t, err)
		})
	}
}
