package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSiteAddress(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare host", "mysite.example.com", "http://mysite.example.com"},
		{"existing scheme kept", "https://mysite.example.com", "https://mysite.example.com"},
		{"uppercase lowered", "MySite.Example.Com", "http://mysite.example.com"},
		{"surrounding space trimmed", "  mysite.example.com  ", "http://mysite.example.com"},
		{"wp-login stripped", "mysite.example.com/wp-login.php", "http://mysite.example.com"},
		{"wp-admin stripped", "mysite.example.com/wp-admin/", "http://mysite.example.com"},
		{"trailing slashes stripped", "mysite.example.com//", "http://mysite.example.com"},
		{"wp-login with trailing slash", "mysite.example.com/wp-login.php/", "http://mysite.example.com"},
		{"wp-admin double slash", "mysite.example.com/wp-admin//", "http://mysite.example.com"},
		{"stacked suffixes", "mysite.example.com/wp-admin/wp-login.php/", "http://mysite.example.com"},
		{"path kept", "mysite.example.com/blog", "http://mysite.example.com/blog"},
		{"hosted forced to https", "myblog.wordpress.com", "https://myblog.wordpress.com"},
		{"hosted http upgraded", "http://myblog.wordpress.com", "https://myblog.wordpress.com"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeSiteAddress(tt.in))
		})
	}
}

func TestNormalizeSiteAddress_Idempotent(t *testing.T) {
	inputs := []string{
		"mysite.example.com/wp-login.php",
		"MySite.example.com/wp-admin/",
		"mysite.example.com/wp-login.php/",
		"mysite.example.com/wp-admin//",
		"mysite.example.com/wp-admin/wp-login.php/",
		"myblog.wordpress.com",
		"http://mysite.example.com//",
	}
	for _, in := range inputs {
		once := NormalizeSiteAddress(in)
		assert.Equal(t, once, NormalizeSiteAddress(once), "normalizing %q twice diverged", in)
	}
}

func TestIsWordPressComAddress(t *testing.T) {
	assert.True(t, IsWordPressComAddress("wordpress.com"))
	assert.True(t, IsWordPressComAddress("myblog.wordpress.com"))
	assert.True(t, IsWordPressComAddress("https://myblog.wordpress.com/path"))
	assert.False(t, IsWordPressComAddress("notwordpress.com"))
	assert.False(t, IsWordPressComAddress("wordpress.com.evil.example.com"))
}
