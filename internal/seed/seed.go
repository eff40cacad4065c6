package seed

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/config"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/repository"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/utils"
)

// SeedFleet 插入随机的司机、车辆以及过去若干天的班次、营收和支出
func SeedFleet(ctx context.Context, r *repository.Repository, cfg *config.Config) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	manager, err := utils.GenerateRandomUser(cfg.Seed.User.Password, cfg.Email.UserDomain)
	if err != nil {
		return err
	}
	manager.Role = domain.RoleManager
	if err := r.CreateUser(ctx, manager); err != nil {
		return fmt.Errorf("插入经理失败: %w", err)
	}

	vehicles := make([]*domain.Vehicle, 0, cfg.Seed.Vehicles)
	for range cfg.Seed.Vehicles {
		v := utils.GenerateRandomVehicle()
		if err := r.CreateVehicle(ctx, v); err != nil {
			slog.Error("插入车辆失败", "error", err)
			continue
		}
		vehicles = append(vehicles, v)
	}
	if len(vehicles) == 0 {
		return errors.New("没有可用的车辆")
	}

	drivers := make([]*domain.Driver, 0, cfg.Seed.Drivers)
	for range cfg.Seed.Drivers {
		user, err := utils.GenerateRandomUser(cfg.Seed.User.Password, cfg.Email.UserDomain)
		if err != nil {
			return err
		}
		user.Role = domain.RoleDriver

		driver := &domain.Driver{
			Tier: utils.GenerateRandomDriverTier(),
			City: utils.GenerateRandomCity(),
		}
		if err := r.CreateUserWithDriver(ctx, user, driver); err != nil {
			slog.Error("插入司机失败", "username", user.Username, "error", err)
			continue
		}
		drivers = append(drivers, driver)
	}

	today := domain.DateOf(time.Now(), loc)
	shifts, revenues, expenses := 0, 0, 0
	for d := cfg.Seed.Days; d >= 1; d-- {
		day := today.AddDays(-d)

		for _, driver := range drivers {
			// 每个司机大约七成的日子有班
			if rand.Intn(10) >= 7 {
				continue
			}

			vehicle := vehicles[rand.Intn(len(vehicles))]
			sa, err := completedShift(ctx, r, driver, vehicle.ID, day.Start(loc))
			if err != nil {
				slog.Error("插入班次失败", "driver_id", driver.ID, "error", err)
				continue
			}
			shifts++

			for _, source := range []domain.RevenueSource{domain.RevenueSourceBolt, domain.RevenueSourceUber} {
				if rand.Intn(2) == 0 {
					continue
				}
				if err := r.CreateRevenueRecord(ctx, utils.GenerateRandomRevenueRecord(sa, source)); err != nil {
					slog.Error("插入营收失败", "shift_assignment_id", sa.ID, "error", err)
					continue
				}
				revenues++
			}
		}

		for _, vehicle := range vehicles {
			if rand.Intn(5) != 0 {
				continue
			}
			if err := r.CreateExpense(ctx, utils.GenerateRandomExpense(manager.ID, vehicle.ID, day)); err != nil {
				slog.Error("插入支出失败", "vehicle_id", vehicle.ID, "error", err)
				continue
			}
			expenses++
		}
	}

	slog.Info("插入数据完成",
		slog.Int("drivers", len(drivers)),
		slog.Int("vehicles", len(vehicles)),
		slog.Int("shifts", shifts),
		slog.Int("revenues", revenues),
		slog.Int("expenses", expenses),
	)

	return nil
}

// completedShift 插入一个已经完成的班次，并补齐签到和签退事件
func completedShift(ctx context.Context, r *repository.Repository, driver *domain.Driver, vehicleID int64, day time.Time) (*domain.ShiftAssignment, error) {
	sa := utils.GenerateRandomShiftAssignment(driver, vehicleID, day)
	if err := r.CreateShiftAssignment(ctx, sa); err != nil {
		return nil, err
	}

	start := sa.ScheduledStartTime.Add(time.Duration(rand.Intn(20)) * time.Minute)
	end := sa.ScheduledEndTime.Add(time.Duration(rand.Intn(40)-20) * time.Minute)

	odometer := float64(10000 + rand.Intn(90000))
	distance := float64(80 + rand.Intn(250))
	for _, e := range []*domain.ShiftEvent{
		{ShiftAssignmentID: sa.ID, EventType: domain.ShiftEventClockIn, Odometer: &odometer, CreatedAt: start},
		{ShiftAssignmentID: sa.ID, EventType: domain.ShiftEventClockOut, Odometer: ptr(odometer + distance), CreatedAt: end},
	} {
		if err := r.AppendShiftEvent(ctx, e); err != nil {
			return nil, err
		}
	}

	sa.Status = domain.ShiftStatusCompleted
	sa.ActualStartTime = &start
	sa.ActualEndTime = &end
	if err := r.UpdateShiftAssignmentStatus(ctx, sa); err != nil {
		return nil, err
	}

	return sa, nil
}

func ptr[T any](v T) *T {
	return &v
}

// ImportEarnings 从平台导出的 CSV 导入营收记录
// 表头依次为 司机用户名, 平台, 班次ID, 营收, 利润, 入账时间
func ImportEarnings(ctx context.Context, r *repository.Repository, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("打开文件失败: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)

	// 跳过表头
	if _, err := reader.Read(); err != nil {
		return fmt.Errorf("读取表头失败: %w", err)
	}

	drivers := make(map[string]*domain.Driver)
	imported := 0
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("读取文件失败: %w", err)
		}
		if len(row) < 6 {
			slog.Error("列数不足", "line", line)
			continue
		}

		driver, ok := drivers[row[0]]
		if !ok {
			driver, err = driverByUsername(ctx, r, row[0])
			if err != nil {
				slog.Error("获取司机失败", "line", line, "username", row[0], "error", err)
				continue
			}
			drivers[row[0]] = driver
		}

		rr, err := parseEarningsRow(driver, row)
		if err != nil {
			slog.Error("解析营收失败", "line", line, "error", err)
			continue
		}

		if err := r.CreateRevenueRecord(ctx, rr); err != nil {
			slog.Error("插入营收失败", "line", line, "error", err)
			continue
		}
		imported++
	}

	slog.Info("导入营收完成", slog.Int("count", imported))
	return nil
}

func driverByUsername(ctx context.Context, r *repository.Repository, username string) (*domain.Driver, error) {
	user, err := r.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	driver, err := r.GetDriverByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("用户 %s 没有司机档案", username)
		}
		return nil, err
	}

	return driver, nil
}

func parseEarningsRow(driver *domain.Driver, row []string) (*domain.RevenueRecord, error) {
	rr := &domain.RevenueRecord{
		DriverID: driver.ID,
		Source:   domain.RevenueSource(row[1]),
	}

	switch rr.Source {
	case domain.RevenueSourceBolt, domain.RevenueSourceUber, domain.RevenueSourceOffTrip:
	default:
		return nil, fmt.Errorf("未知的营收来源 %q", row[1])
	}

	if row[2] != "" {
		id, err := strconv.ParseInt(row[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("班次ID非法: %w", err)
		}
		rr.ShiftAssignmentID = &id
	}
	if rr.Source.Platform() && rr.ShiftAssignmentID == nil {
		return nil, fmt.Errorf("平台 %s 的营收必须填写班次ID", rr.Source)
	}

	var err error
	if rr.TotalRevenue, err = domain.ParseMoney(row[3]); err != nil {
		return nil, err
	}
	if rr.TotalProfit, err = domain.ParseMoney(row[4]); err != nil {
		return nil, err
	}
	if rr.RealizedAt, err = time.Parse(time.RFC3339, row[5]); err != nil {
		return nil, fmt.Errorf("入账时间非法: %w", err)
	}

	return rr, nil
}
