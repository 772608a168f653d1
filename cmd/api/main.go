package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"driveschool/internal/database"
	"driveschool/internal/lock"
	"driveschool/internal/middleware"
	"driveschool/internal/modules/billing"
	"driveschool/internal/modules/schedule"
	jwtsvc "driveschool/internal/pkg/jwt"
	"driveschool/internal/repository"
)

const defaultTaxRate = 0.10

func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is empty")
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is empty")
	}

	db, err := database.Connect(dsn)
	if err != nil {
		log.Fatal(err)
	}

	var locker lock.Locker
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		redisLocker, err := lock.NewRedisLocker(addr)
		if err != nil {
			log.Fatalf("redis lock init failed: %v", err)
		}
		defer redisLocker.Close()
		locker = redisLocker
	} else {
		log.Println("REDIS_ADDR is empty, using in-process booking locks")
		locker = lock.NewMemoryLocker()
	}

	taxRate := defaultTaxRate
	if v := os.Getenv("TAX_RATE"); v != "" {
		taxRate, err = strconv.ParseFloat(v, 64)
		if err != nil || taxRate < 0 {
			log.Fatalf("invalid TAX_RATE: %q", v)
		}
	}

	lessonRepo := repository.NewLessonRepository(db)
	directoryRepo := repository.NewDirectoryRepository(db)

	j := jwtsvc.New(secret, 24*time.Hour)

	scheduleService := schedule.NewService(lessonRepo, directoryRepo, locker, logNotifier{})
	scheduleHandler := schedule.NewHandler(scheduleService)

	billingService := billing.NewService(db, taxRate, log.Printf)
	billingHandler := billing.NewHandler(billingService)

	r := gin.Default()
	r.Use(middleware.ErrorLogger())

	v1 := r.Group("/api/v1")
	{
		protected := v1.Group("/")
		protected.Use(authMiddleware(j))
		{
			scheduleHandler.RegisterRoutes(protected)
			billingHandler.RegisterRoutes(protected)
		}
	}

	if err := r.Run(":8080"); err != nil {
		log.Fatal(err)
	}
}

// logNotifier is the default NotificationSender: events are logged and
// the real delivery pipeline picks them up elsewhere.
type logNotifier struct{}

func (logNotifier) NotifyLessonBooked(_ context.Context, studentID, lessonID int64, start time.Time) error {
	log.Printf("event=lesson_booked student_id=%d lesson_id=%d start=%s", studentID, lessonID, start.Format(time.RFC3339))
	return nil
}

func (logNotifier) NotifyLessonCancelled(_ context.Context, studentID, lessonID int64, reason string) error {
	log.Printf("event=lesson_cancelled student_id=%d lesson_id=%d reason=%q", studentID, lessonID, reason)
	return nil
}

func (logNotifier) NotifyLessonCompleted(_ context.Context, studentID, lessonID int64) error {
	log.Printf("event=lesson_completed student_id=%d lesson_id=%d", studentID, lessonID)
	return nil
}

func authMiddleware(jwt *jwtsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Missing or invalid Authorization header",
				},
			})
			return
		}

		tokenStr := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		claims, err := jwt.ValidateToken(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Invalid token",
				},
			})
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)

		c.Next()
	}
}
