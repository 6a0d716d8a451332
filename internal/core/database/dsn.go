package database

import (
	"fmt"
	"net/url"
	"strings"
)

// JDBC 参数到 go-sql-driver 参数的改名；值为空表示直接丢弃
var jdbcParams = map[string]string{
	"characterEncoding":    "charset",
	"serverTimezone":       "loc",
	"useUnicode":           "",
	"zeroDateTimeBehavior": "",
}

var mysqlDefaults = map[string]string{
	"parseTime": "true",
	"charset":   "utf8mb4",
}

func maskDSN(dsn string) string {
	at := strings.Index(dsn, "@")
	if at <= 0 {
		return dsn
	}
	colon := strings.Index(dsn[:at], ":")
	if colon <= 0 {
		return dsn
	}
	return dsn[:colon+1] + "****" + dsn[at:]
}

// normalizeMySQLDSN 把 jdbc:mysql:// 或 mysql:// URL 改写成 user:pass@tcp(host)/db?...；
// 已经是原生 DSN 的原样返回
func normalizeMySQLDSN(input, user, pass string) string {
	in := strings.TrimPrefix(strings.TrimSpace(input), "jdbc:")
	if !strings.HasPrefix(in, "mysql://") {
		return strings.TrimSpace(input)
	}
	u, err := url.Parse(in)
	if err != nil {
		return in
	}

	q := u.Query()
	cred := credentials(u, q)
	if user != "" {
		cred.user = user
	}
	if pass != "" {
		cred.pass = pass
	}

	for from, to := range jdbcParams {
		v := q.Get(from)
		q.Del(from)
		if v != "" && to != "" && q.Get(to) == "" {
			q.Set(to, v)
		}
	}
	if v := q.Get("useSSL"); v != "" {
		q.Set("tls", tlsMode(v))
		q.Del("useSSL")
	}
	for k, v := range mysqlDefaults {
		if q.Get(k) == "" {
			q.Set(k, v)
		}
	}

	dsn := fmt.Sprintf("%stcp(%s)/%s", cred, u.Host, strings.TrimPrefix(u.Path, "/"))
	if enc := q.Encode(); enc != "" {
		dsn += "?" + enc
	}
	return dsn
}

type mysqlCred struct{ user, pass string }

// String 渲染成 DSN 前缀 "user:pass@"，都为空时返回空串
func (c mysqlCred) String() string {
	s := c.user
	if c.pass != "" {
		s += ":" + c.pass
	}
	if s != "" {
		s += "@"
	}
	return s
}

// credentials URL userinfo 优先级低于 query 中的 user/password
func credentials(u *url.URL, q url.Values) mysqlCred {
	var c mysqlCred
	if u.User != nil {
		c.user = u.User.Username()
		c.pass, _ = u.User.Password()
	}
	if v := q.Get("user"); v != "" {
		c.user = v
	}
	if v := q.Get("password"); v != "" {
		c.pass = v
	}
	q.Del("user")
	q.Del("password")
	return c
}

func tlsMode(useSSL string) string {
	switch strings.ToLower(useSSL) {
	case "true", "1":
		return "true"
	case "skip-verify", "preferred":
		return strings.ToLower(useSSL)
	}
	return "false"
}
