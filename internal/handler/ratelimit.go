package handler

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Limit is a token-bucket rule allowing Events requests per Per, with a
// burst of Events.
type Limit struct {
	Events int
	Per    time.Duration
}

// PerMinute returns a Limit of n requests per minute.
func PerMinute(n int) Limit { return Limit{Events: n, Per: time.Minute} }

// PerHour returns a Limit of n requests per hour.
func PerHour(n int) Limit { return Limit{Events: n, Per: time.Hour} }

func (l Limit) newLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Every(l.Per/time.Duration(l.Events)), l.Events)
}

type ipLimiter struct {
	limiters []*rate.Limiter
	lastSeen time.Time
}

// RateLimiter returns a Gin middleware that enforces per-IP token-bucket
// rate limiting. A request must pass every limit. Limits with Events <= 0
// are ignored. Stale entries are cleaned every 5 minutes.
func RateLimiter(scope string, limits ...Limit) gin.HandlerFunc {
	var active []Limit
	longest := time.Minute
	for _, l := range limits {
		if l.Events <= 0 || l.Per <= 0 {
			continue
		}
		active = append(active, l)
		longest = max(longest, l.Per)
	}
	if len(active) == 0 {
		return func(c *gin.Context) { c.Next() }
	}

	var mu sync.Mutex
	clients := make(map[string]*ipLimiter)

	// Background cleanup goroutine. An entry idle for longer than the
	// longest window has refilled completely and can be dropped.
	go func() {
		for {
			time.Sleep(5 * time.Minute)
			mu.Lock()
			for ip, l := range clients {
				if time.Since(l.lastSeen) > longest {
					delete(clients, ip)
				}
			}
			mu.Unlock()
		}
	}()

	return func(c *gin.Context) {
		ip := c.ClientIP()

		mu.Lock()
		l, ok := clients[ip]
		if !ok {
			l = &ipLimiter{}
			for _, lim := range active {
				l.limiters = append(l.limiters, lim.newLimiter())
			}
			clients[ip] = l
		}
		l.lastSeen = time.Now()
		mu.Unlock()

		for i, lim := range l.limiters {
			if !lim.Allow() {
				retry := active[i].Per / time.Duration(active[i].Events)
				c.Header("Retry-After", strconv.Itoa(max(1, int(retry.Seconds()))))
				recordRateLimited(scope)
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
					"error": "rate limit exceeded",
				})
				return
			}
		}
		c.Next()
	}
}
