package config

import "os"

// LookupFunc looks up an environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overlays environment variables on c.
// A nil lookup uses os.LookupEnv.
//
// CUSTOM_URLS replaces the target list when it yields at least one URL
// after trimming and dropping empty entries.
func (c *Config) ApplyEnv(lookup LookupFunc) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	if v, ok := lookup(EnvSMTPUsername); ok {
		c.SMTPUsername = v
	}
	if v, ok := lookup(EnvSMTPPassword); ok {
		c.SMTPPassword = v
	}
	if v, ok := lookup(EnvCustomURLs); ok {
		if urls := SplitList(v); len(urls) > 0 {
			c.Targets = urls
		}
	}
	if v, ok := lookup(EnvMailFrom); ok && v != "" {
		c.MailFrom = v
	}
	if v, ok := lookup(EnvMailTo); ok {
		if to := SplitList(v); len(to) > 0 {
			c.MailTo = to
		}
	}
	if v, ok := lookup(EnvWorkDir); ok && v != "" {
		c.WorkDir = v
	}
}
