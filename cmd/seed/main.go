package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/config"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/repository"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/seed"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var n int
	var file string

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 插入随机用户, 2: 插入随机车辆, 3: 插入随机车队数据, 4: 从 CSV 导入平台营收)")
	flag.IntVar(&n, "n", 5, "要插入的记录数量")
	flag.StringVar(&file, "file", "./internal/seed/data/earnings.csv", "要导入的营收 CSV 文件")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 本地开发时从 .env 读取环境变量，文件不存在时忽略
	_ = godotenv.Load()

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 创建数据库连接池
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	if err := repository.Migrate(cfg.Database.DSN); err != nil {
		logger.Error("无法迁移数据库", "error", err)
		return
	}

	// 创建 repository
	repo := repository.NewRepository(cfg, dbpool)

	ctx = context.Background()

	// 执行操作
	switch op {
	case 0:
		slog.Error("未指定操作")
	case 1:
		if n <= 0 {
			slog.Error("请输入合法的用户数量")
			return
		}

		cnt := 0
		for range n {
			user, err := utils.GenerateRandomUser(cfg.Seed.User.Password, cfg.Email.UserDomain)
			if err != nil {
				slog.Error("无法生成随机用户", slog.String("error", err.Error()))
				continue
			}

			if err := repo.CreateUser(ctx, user); err != nil {
				slog.Error("无法插入用户", slog.String("error", err.Error()))
				continue
			}

			cnt++
		}

		slog.Info("插入用户成功", slog.Int("count", cnt))
	case 2:
		if n <= 0 {
			slog.Error("请输入合法的车辆数量")
			return
		}

		cnt := 0
		for range n {
			if err := repo.CreateVehicle(ctx, utils.GenerateRandomVehicle()); err != nil {
				slog.Error("无法插入车辆", slog.String("error", err.Error()))
				continue
			}

			cnt++
		}

		slog.Info("插入车辆成功", slog.Int("count", cnt))
	case 3:
		if err := seed.SeedFleet(ctx, repo, cfg); err != nil {
			slog.Error("无法插入车队数据", slog.String("error", err.Error()))
		}
	case 4:
		if err := seed.ImportEarnings(ctx, repo, file); err != nil {
			slog.Error("无法导入营收", slog.String("error", err.Error()))
		}
	default:
		slog.Error("指定的操作非法")
	}
}
