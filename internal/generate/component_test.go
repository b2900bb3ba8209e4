package generate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
)

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"grafana", "prometheus", "kibana", "logstash"}, Names())
}

func TestLookup(t *testing.T) {
	grafana, ok := Lookup("grafana")
	require.True(t, ok)
	assert.Equal(t, ModeFromScratch, grafana.Mode)
	assert.Equal(t, corev1.ServiceTypeNodePort, grafana.ServiceType)
	assert.True(t, grafana.Application)

	kibana, ok := Lookup("kibana")
	require.True(t, ok)
	assert.Equal(t, ModeTemplatePatch, kibana.Mode)
	assert.Equal(t, []string{ServiceFile, ServiceAccountFile}, kibana.StaticFiles)
	assert.False(t, kibana.Application)

	_, ok = Lookup("elasticsearch")
	assert.False(t, ok)
}

func TestComponents_ReturnsCopy(t *testing.T) {
	list := Components()
	list[0].Name = "changed"

	assert.Equal(t, "grafana", Components()[0].Name)
}

func TestRequired(t *testing.T) {
	tests := []struct {
		component string
		want      []string
	}{
		{component: "grafana", want: nil},
		{component: "prometheus", want: []string{SettingRequests, SettingLimits, SettingMinReplicas, SettingMaxReplicas}},
		{component: "kibana", want: []string{SettingResources, SettingMinReplicas, SettingMaxReplicas}},
		{component: "logstash", want: []string{SettingResources, SettingMinReplicas, SettingMaxReplicas}},
	}

	for _, tt := range tests {
		t.Run(tt.component, func(t *testing.T) {
			c, ok := Lookup(tt.component)
			require.True(t, ok)
			assert.Equal(t, tt.want, c.Required())
		})
	}
}

func TestTemplates(t *testing.T) {
	prometheus, _ := Lookup("prometheus")
	assert.Equal(t, []string{"argocd/prometheus.yaml"}, prometheus.Templates())

	logstash, _ := Lookup("logstash")
	assert.Equal(t, []string{
		"logstash/deployment.yaml",
		"logstash/hpa.yaml",
		"logstash/service-account.yaml",
	}, logstash.Templates())
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "template-patch", ModeTemplatePatch.String())
	assert.Equal(t, "from-scratch", ModeFromScratch.String())
	assert.Equal(t, "Mode(7)", Mode(7).String())
}
