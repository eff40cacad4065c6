package utils

import (
	"math/rand"
	"time"

	"github.com/mozillazg/go-pinyin"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "勇", "霞", "飞", "玲",
	"超", "华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌",
	"庆", "建", "丹", "彬", "凤", "旭", "宁", "乐", "成", "欣",
}

func GenerateRandomChineseName() string {
	surname := commonSurnames[rand.Intn(len(commonSurnames))]
	nameLength := rand.Intn(2) + 1
	name := ""

	for i := 0; i < nameLength; i++ {
		name += commonNameCharacters[rand.Intn(len(commonNameCharacters))]
	}
	return surname + name
}

var roles = []domain.Role{
	domain.RoleDriver,
	domain.RoleDriver,
	domain.RoleDriver,
	domain.RoleManager,
}

func GenerateRandomRole() domain.Role {
	return roles[rand.Intn(len(roles))]
}

var digits = "0123456789"

func GenerateUsernameFromChineseName(chineseName string) string {
	pinyinArray := pinyin.LazyConvert(chineseName, nil)
	username := ""

	for _, pinyin := range pinyinArray {
		length := rand.Intn(len(pinyin)) + 1
		username += pinyin[:length]
	}

	digitsLength := rand.Intn(3) + 1
	for i := 0; i < digitsLength; i++ {
		username += string(digits[rand.Intn(len(digits))])
	}

	return username
}

func GenerateRandomUser(password string, emailDomainName string) (*domain.User, error) {
	fullName := GenerateRandomChineseName()
	username := GenerateUsernameFromChineseName(fullName)
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: string(passwordHash),
		FullName:     fullName,
		Email:        username + "@" + emailDomainName,
		Role:         GenerateRandomRole(),
	}

	return user, nil
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*")

func GenerateRandomPassword(length int) string {
	random_password := make([]rune, length)
	for i := range random_password {
		random_password[i] = letters[rand.Intn(len(letters))]
	}
	return string(random_password)
}

var cities = []string{"广州", "深圳", "珠海", "佛山"}

func GenerateRandomCity() string {
	return cities[rand.Intn(len(cities))]
}

func GenerateRandomDriverTier() domain.DriverTier {
	if rand.Intn(3) == 0 {
		return domain.DriverTier2
	}
	return domain.DriverTier1
}

var plateLetters = "ABCDEFGHJKLMNPQRSTUVWXYZ"

// 生成形如 粤B·D12345 的新能源车牌
func GenerateRandomPlateNumber() string {
	plate := "粤" + string(plateLetters[rand.Intn(len(plateLetters))]) + "·D"
	for i := 0; i < 5; i++ {
		plate += string(digits[rand.Intn(len(digits))])
	}
	return plate
}

var vehicleModels = []string{"比亚迪 秦PLUS", "比亚迪 e6", "广汽埃安 S", "特斯拉 Model 3"}

func GenerateRandomVehicle() *domain.Vehicle {
	return &domain.Vehicle{
		PlateNumber: GenerateRandomPlateNumber(),
		Model:       vehicleModels[rand.Intn(len(vehicleModels))],
		City:        GenerateRandomCity(),
	}
}

// 生成一个从 day 当天早上开始、持续 8 小时的班次安排
func GenerateRandomShiftAssignment(driver *domain.Driver, vehicleID int64, day time.Time) *domain.ShiftAssignment {
	start := time.Date(day.Year(), day.Month(), day.Day(), 6+rand.Intn(4), 0, 0, 0, day.Location())
	return &domain.ShiftAssignment{
		DriverID:           driver.ID,
		VehicleID:          vehicleID,
		ScheduledStartTime: start,
		ScheduledEndTime:   start.Add(8 * time.Hour),
		Status:             domain.ShiftStatusScheduled,
		City:               driver.City,
	}
}

// 为一个班次生成营收记录，金额在 200 到 1500 元之间
func GenerateRandomRevenueRecord(sa *domain.ShiftAssignment, source domain.RevenueSource) *domain.RevenueRecord {
	revenue := domain.Money(20000 + rand.Int63n(130000))
	shiftID := sa.ID
	vehicleID := sa.VehicleID
	return &domain.RevenueRecord{
		DriverID:          sa.DriverID,
		ShiftAssignmentID: &shiftID,
		VehicleID:         &vehicleID,
		Source:            source,
		TotalRevenue:      revenue,
		TotalProfit:       revenue.MulRate(6000),
		RealizedAt:        sa.ScheduledEndTime,
	}
}

func GenerateRandomExpense(userID int64, vehicleID int64, date domain.Date) *domain.Expense {
	category := domain.ExpenseCategories[rand.Intn(len(domain.ExpenseCategories))]
	e := &domain.Expense{
		UserID:    userID,
		VehicleID: &vehicleID,
		Amount:    domain.Money(1000 + rand.Int63n(50000)),
		Category:  category,
		Date:      date,
	}
	if category == domain.ExpenseCategoryOther {
		description := "其他支出" + GenerateRandomPassword(6)
		e.Description = &description
	}
	return e
}

// GenerateRandomOTP 生成 6 位数字验证码
func GenerateRandomOTP() string {
	otp := make([]byte, 6)
	for i := range otp {
		otp[i] = digits[rand.Intn(len(digits))]
	}
	return string(otp)
}
