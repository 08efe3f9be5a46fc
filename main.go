package main

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"DOJO-backend/internal/attendance"
	"DOJO-backend/internal/members"
	"DOJO-backend/internal/platform/auth"
	"DOJO-backend/internal/platform/crypto"
	"DOJO-backend/internal/platform/db"
	"DOJO-backend/internal/students"
)

// フロントのビルド出力を埋め込む
// "//go:embed public" ← これはビルドに必要なので消さないこと

// go:embed public
var embedded embed.FS

func main() {
	// 設定読み込み
	cfg, err := db.LoadConfig("config/config.yaml")
	if err != nil {
		panic(err)
	}

	// 動作モード取得
	mode := cfg.Mode
	log.Printf("[INFO] mode:%s\n", mode)

	if cfg.Mode != "dev" && cfg.Mode != "release" {
		fmt.Println("Usage: go run main.go [dev|release]")
		return
	}

	loc, err := cfg.Location()
	if err != nil {
		panic(err)
	}

	piiKey, err := cfg.Security.PIIKey()
	if err != nil {
		panic(err)
	}
	cipher, err := crypto.NewFieldCipher(piiKey)
	if err != nil {
		panic(err)
	}

	conn, err := db.Connect(cfg.DB)
	if err != nil {
		panic(err)
	}
	defer conn.Close()

	log.Printf("[INFO] connected to DB: %s", cfg.DB.DBName)

	accountSvc := auth.NewService(auth.NewStore(conn), []byte(cfg.Security.JWTSecret), cfg.Security.TokenTTL())
	studentStore := students.NewStore(conn)
	studentSvc := students.NewService(studentStore, cipher, loc)
	memberSvc := members.NewService(members.NewStore(conn), cipher, loc)
	attendanceSvc := attendance.NewService(attendance.NewStore(conn), loc)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	if mode == "dev" {
		// CORS（開発中のみ必要）
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:3000"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length", "Location"},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))
	}

	// すべてのリクエストはまずゾーン判定を通る
	gate := auth.NewGate()
	r.Use(auth.Gatekeeper(gate, accountSvc))

	// ヘルス
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// /api/v1 公開（ログイン・入会申込）
	api := r.Group("/api/v1")
	auth.RegisterRoutes(api, accountSvc)
	members.RegisterPublicRoutes(api, memberSvc)

	// /api/v1/portal 在籍生本人ゾーン
	portal := api.Group("/portal")
	students.RegisterPortalRoutes(portal, studentSvc)
	attendance.RegisterPortalRoutes(portal, attendanceSvc, func(ctx context.Context, accountULID string) (string, error) {
		st, err := studentStore.GetByAccountULID(ctx, accountULID)
		if err != nil {
			return "", err
		}
		if st == nil {
			return "", fmt.Errorf("no student profile for account %s", accountULID)
		}
		return st.AdmissionNumber, nil
	})

	// /api/v1/admin 職員ゾーン
	admin := api.Group("/admin")
	students.RegisterAdminRoutes(admin, studentSvc)
	members.RegisterAdminRoutes(admin, memberSvc)
	attendance.RegisterAdminRoutes(admin, attendanceSvc)

	// 職員アカウント管理は admin ロールのみ（sensei は不可）
	staff := admin.Group("", auth.RequireRole(auth.RoleAdmin))
	auth.RegisterStaffRoutes(staff, accountSvc)

	sub, err := fs.Sub(embedded, "public")
	if err != nil {
		log.Fatal(err)
	}
	fileFS := http.FS(sub)

	r.NoRoute(func(c *gin.Context) {
		// API は対象外
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.Status(http.StatusNotFound)
			return
		}

		reqPath := strings.TrimPrefix(c.Request.URL.Path, "/")
		if reqPath == "" {
			reqPath = "index.html"
		}

		// 実ファイルがあるならそれを返す（Content-Type を推測、キャッシュ付与）
		if f, err := fileFS.Open(reqPath); err == nil {
			defer f.Close()
			if ct := mime.TypeByExtension(path.Ext(reqPath)); ct != "" {
				c.Header("Content-Type", ct)
			}
			// index.html 以外はキャッシュ（SPAの基本運用）
			if !strings.HasSuffix(reqPath, "index.html") {
				c.Header("Cache-Control", "public, max-age=86400, immutable")
			}
			if fileInfo, err := f.Stat(); err == nil {
				http.ServeContent(c.Writer, c.Request, reqPath, fileInfo.ModTime(), f)
			} else {
				c.Status(http.StatusInternalServerError)
			}
			return
		}

		// なければ index.html にフォールバック
		if idx, err := fileFS.Open("index.html"); err == nil {
			defer idx.Close()
			c.Header("Content-Type", "text/html; charset=utf-8")
			if fileInfo, err := idx.Stat(); err == nil {
				http.ServeContent(c.Writer, c.Request, "index.html", fileInfo.ModTime(), idx)
			} else {
				c.Status(http.StatusInternalServerError)
			}
			return
		}

		c.Status(http.StatusNotFound)
	})

	// TLS起動（:8443 例）
	srv := &http.Server{
		Addr:    ":8443",
		Handler: r,
	}

	var certFile, keyFile string

	// TLS設定
	if mode == "dev" {
		//開発用
		certFile = fmt.Sprintf("config/tls/dev/%s", cfg.Certificate.Cert)
		keyFile = fmt.Sprintf("config/tls/dev/%s", cfg.Certificate.Key)
	} else {
		//本番用
		certFile = fmt.Sprintf("config/tls/release/%s", cfg.Certificate.Cert)
		keyFile = fmt.Sprintf("config/tls/release/%s", cfg.Certificate.Key)
	}

	go func() {
		log.Println("[INFO] listening on https://0.0.0.0:8443")
		if err := srv.ListenAndServeTLS(certFile, keyFile); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	log.Println("[INFO] shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal(err)
	}
}
