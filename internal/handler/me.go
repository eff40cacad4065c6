package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

type myInfoResponse struct {
	*domain.User
	Driver *domain.Driver `json:"driver"`
}

func changeEmailOTPKey(username, email string) string {
	return fmt.Sprintf("otp_%s_change_email_to_%s", username, email)
}

// GetMyInfo 返回当前用户的信息，司机额外附带司机档案
func (h *Handler) GetMyInfo(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	resp := myInfoResponse{User: myInfo}
	driver, err := h.repository.GetDriverByUserID(r.Context(), myInfo.ID)
	switch {
	case err == nil:
		resp.Driver = driver
	case errors.Is(err, sql.ErrNoRows):
	default:
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取个人信息成功", resp)
}

func (h *Handler) UpdateMyPassword(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	var req struct {
		OldPassword string `json:"oldPassword" validate:"required"`
		NewPassword string `json:"newPassword" validate:"required,min=8"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 校验旧密码
	if err := bcrypt.CompareHashAndPassword([]byte(myInfo.PasswordHash), []byte(req.OldPassword)); err != nil {
		h.errorResponse(w, r, "旧密码错误")
		return
	}

	// 更新密码
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	myInfo.PasswordHash = string(hashedPassword)

	if err := h.repository.UpdateUser(r.Context(), myInfo); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "更新密码失败，请重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "更新密码成功", nil)
}

func (h *Handler) RequireUpdateEmail(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	var req struct {
		NewEmail string `json:"newEmail" validate:"required,email"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 检测新邮箱是否已被占用
	isExists, err := h.repository.CheckEmailIfExists(r.Context(), req.NewEmail)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	if isExists {
		h.businessError(w, r, domain.NewFieldError("newEmail", domain.CodeTaken, "邮箱已被占用"))
		return
	}

	// 生成 OTP 并将 OTP 存到 redis
	otp := utils.GenerateRandomOTP()

	if err := h.redisClient.Set(r.Context(), changeEmailOTPKey(myInfo.Username, req.NewEmail), otp, time.Duration(h.config.OTP.Expiration)*time.Second).Err(); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	// 准备邮件
	mailMessage := domain.MailMessage{
		Type: domain.MailTypeChangeEmail,
		To:   req.NewEmail,
		Data: domain.ChangeEmailMailData{
			FullName:   myInfo.FullName,
			OTP:        otp,
			Expiration: h.config.OTP.Expiration / 60,
		},
	}

	// 发送邮件到消息队列中
	if err := h.mailPublisher.PublishMail(r.Context(), mailMessage); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	// 返回成功响应
	h.successResponse(w, r, "更改邮箱所需验证码已通过邮件发送", nil)
}

func (h *Handler) ConfirmUpdateEmail(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	var req struct {
		OTP      string `json:"otp" validate:"required"`
		NewEmail string `json:"newEmail" validate:"required,email"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 检验 OTP
	key := changeEmailOTPKey(myInfo.Username, req.NewEmail)
	otp, err := h.redisClient.Get(r.Context(), key).Result()
	if err != nil || otp != req.OTP {
		h.errorResponse(w, r, "验证码错误")
		return
	}

	// 更新邮箱
	myInfo.Email = req.NewEmail
	if err := h.repository.UpdateUser(r.Context(), myInfo); err != nil {
		h.serviceError(w, r, err)
		return
	}

	// 删除 OTP
	if err := h.redisClient.Del(r.Context(), key).Err(); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	// 响应
	h.successResponse(w, r, "更改邮箱成功", nil)
}
