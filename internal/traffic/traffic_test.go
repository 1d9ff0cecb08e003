package traffic_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopalytics/internal/attribution"
	"shopalytics/internal/rawdata"
	"shopalytics/internal/traffic"
)

func writeRawFile(t *testing.T, dir, entity, content string) {
	t.Helper()
	err := os.WriteFile(filepath.Join(dir, entity+".csv"), []byte(content), 0o644)
	require.NoError(t, err)
}

func TestLoadSessionsClassifiesOnce(t *testing.T) {
	dir := t.TempDir()
	writeRawFile(t, dir, rawdata.EntitySessions,
		"website_session_id,created_at,user_id,is_repeat_session,utm_source,utm_campaign,utm_content,device_type,http_referer\n"+
			"1,2012-03-19 08:04:16,1,0,gsearch,nonbrand,g_ad_1,mobile,https://www.gsearch.com\n"+
			"2,2012-03-19 09:10:00,2,1,NULL,NULL,NULL,desktop,https://www.bsearch.com\n"+
			"3,2012-03-19 10:00:00,3,0,NULL,NULL,NULL,desktop,NULL\n")

	sessions, err := traffic.LoadSessions(dir)
	require.NoError(t, err)
	require.Len(t, sessions, 3)

	paid := sessions[0]
	assert.Equal(t, int64(1), paid.ID)
	assert.Equal(t, time.Date(2012, 3, 19, 8, 4, 16, 0, time.UTC), paid.CreatedAt)
	assert.False(t, paid.IsRepeat)
	assert.Equal(t, "mobile", paid.DeviceType)
	assert.Equal(t, attribution.ChannelPaidSearchGoogle, paid.ChannelGroup)
	assert.Equal(t, "gsearch", paid.Source)
	assert.Equal(t, "nonbrand", paid.Campaign)
	assert.Equal(t, "g_ad_1", paid.AdContent)

	organic := sessions[1]
	assert.True(t, organic.IsRepeat)
	assert.Equal(t, attribution.ChannelOrganicSearchBing, organic.ChannelGroup)
	assert.Equal(t, "bsearch", organic.Source)
	assert.Equal(t, attribution.CampaignOrganicNonPaid, organic.Campaign)
	assert.Equal(t, attribution.AdContentOrganic, organic.AdContent)

	direct := sessions[2]
	assert.Equal(t, attribution.ChannelDirectTypeIn, direct.ChannelGroup)
	assert.Equal(t, attribution.SourceOther, direct.Source)
}

func TestLoadSessionsDefaultsMissingDeviceType(t *testing.T) {
	dir := t.TempDir()
	writeRawFile(t, dir, rawdata.EntitySessions,
		"website_session_id,created_at,user_id,is_repeat_session,utm_source,utm_campaign,utm_content,device_type,http_referer\n"+
			"1,2012-03-19 08:04:16,1,0,NULL,NULL,NULL,NULL,NULL\n")

	sessions, err := traffic.LoadSessions(dir)
	require.NoError(t, err)
	assert.Equal(t, attribution.Unknown, sessions[0].DeviceType)
}

func TestLoadSessionsAbortsOnBadFlag(t *testing.T) {
	dir := t.TempDir()
	writeRawFile(t, dir, rawdata.EntitySessions,
		"website_session_id,created_at,user_id,is_repeat_session,utm_source,utm_campaign,utm_content,device_type,http_referer\n"+
			"1,2012-03-19 08:04:16,1,maybe,NULL,NULL,NULL,desktop,NULL\n")

	_, err := traffic.LoadSessions(dir)
	assert.ErrorIs(t, err, rawdata.ErrMalformedInput)
}

func TestLoadPageviews(t *testing.T) {
	dir := t.TempDir()
	writeRawFile(t, dir, rawdata.EntityPageviews,
		"website_pageview_id,created_at,website_session_id,pageview_url\n"+
			"1,2012-03-19 08:04:16,1,/home\n"+
			"2,2012-03-19 08:05:00,1,/products\n")

	pageviews, err := traffic.LoadPageviews(dir)
	require.NoError(t, err)

	assert.Equal(t, []traffic.Pageview{
		{ID: 1, CreatedAt: time.Date(2012, 3, 19, 8, 4, 16, 0, time.UTC), SessionID: 1, URL: "/home"},
		{ID: 2, CreatedAt: time.Date(2012, 3, 19, 8, 5, 0, 0, time.UTC), SessionID: 1, URL: "/products"},
	}, pageviews)
}

func TestLoadPageviewsAbortsOnMissingURL(t *testing.T) {
	dir := t.TempDir()
	writeRawFile(t, dir, rawdata.EntityPageviews,
		"website_pageview_id,created_at,website_session_id,pageview_url\n"+
			"1,2012-03-19 08:04:16,1,NULL\n")

	_, err := traffic.LoadPageviews(dir)
	assert.ErrorIs(t, err, rawdata.ErrMalformedInput)
}

func TestBySessionOrdersChronologicallyWithIDTieBreak(t *testing.T) {
	base := time.Date(2012, 3, 19, 8, 0, 0, 0, time.UTC)
	pageviews := []traffic.Pageview{
		{ID: 5, CreatedAt: base.Add(2 * time.Minute), SessionID: 1, URL: "/cart"},
		{ID: 3, CreatedAt: base, SessionID: 1, URL: "/products"},
		{ID: 2, CreatedAt: base, SessionID: 1, URL: "/home"},
		{ID: 9, CreatedAt: base, SessionID: 2, URL: "/lander-1"},
	}

	grouped := traffic.BySession(pageviews)
	require.Len(t, grouped, 2)

	first := grouped[1]
	require.Len(t, first, 3)
	// Same timestamp: the lower pageview id comes first.
	assert.Equal(t, []int64{2, 3, 5}, []int64{first[0].ID, first[1].ID, first[2].ID})
	assert.Equal(t, "/home", first[0].URL)

	assert.Equal(t, "/lander-1", grouped[2][0].URL)
}
