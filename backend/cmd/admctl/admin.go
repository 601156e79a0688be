package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"tech-visit/backend/internal/dto"
	"tech-visit/backend/internal/model"
	"tech-visit/backend/internal/policy"
	"tech-visit/backend/internal/repository"
	"tech-visit/backend/internal/service"
)

var (
	adminUsername    string
	adminPassword    string
	adminDisplayName string
	adminEmail       string
	adminRole        string
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "创建管理员账号（首次部署时创建系统管理员）",
	Example: `  admctl create-admin --username root --role SYSTEM_ADMIN
  ADMCTL_PASSWORD=... admctl create-admin --username vera`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if adminPassword == "" {
			adminPassword = os.Getenv("ADMCTL_PASSWORD")
		}
		if adminUsername == "" || adminPassword == "" {
			return errors.New("必须提供 --username 与 --password（或 ADMCTL_PASSWORD）")
		}

		_, db, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer closeDB(db)
		defer logger.Sync()

		req := &dto.CreateAdminRequest{
			Username:    adminUsername,
			Password:    adminPassword,
			DisplayName: adminDisplayName,
			Role:        adminRole,
		}
		if adminEmail != "" {
			req.Email = &adminEmail
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// 命令行以系统身份操作，不记录创建人
		system := policy.Principal{Role: model.RoleSystemAdmin}
		admin, err := service.NewAdminService(repository.NewRepository(db), logger).Create(ctx, system, req)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "已创建管理员 #%d %s (%s)\n", admin.ID, admin.Username, admin.Role)
		return nil
	},
}

func init() {
	f := createAdminCmd.Flags()
	f.StringVar(&adminUsername, "username", "", "登录名")
	f.StringVar(&adminPassword, "password", "", "初始密码（至少 8 位）")
	f.StringVar(&adminDisplayName, "display-name", "", "显示名（默认同登录名）")
	f.StringVar(&adminEmail, "email", "", "邮箱")
	f.StringVar(&adminRole, "role", model.RoleSystemAdmin, "角色：SYSTEM_ADMIN 或 VOLUNTEER")
}
