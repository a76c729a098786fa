// 联调用：签发测试令牌，并可把用户加入小组
//
// 令牌正式环境由外部认证服务签发，此脚本只在本地与测试环境使用。
//
// 用法: go run scripts/dev_token.go -user 1 -role teacher -group g1

package main

import (
	"assessment_engine_backend/internal/config"
	"assessment_engine_backend/internal/model"
	"assessment_engine_backend/internal/repository"
	"assessment_engine_backend/internal/util"
	"assessment_engine_backend/pkg/database"
	"assessment_engine_backend/pkg/logger"
	"context"
	"flag"
	"fmt"
	"log"
	"time"
)

func main() {
	userID := flag.Uint("user", 0, "用户ID")
	role := flag.String("role", string(model.Student), "角色 student / teacher / admin")
	email := flag.String("email", "", "邮箱")
	group := flag.String("group", "", "加入的小组ID，为空时只签发令牌")
	hours := flag.Int("hours", 24, "有效期（小时）")
	flag.Parse()

	if *userID == 0 {
		log.Fatal("-user is required")
	}

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}
	logger.InitLogger(cfg)

	r := model.UserRole(*role)
	token, err := util.GenerateJWT(*userID, r, *email, cfg.JWT.Secret, time.Duration(*hours)*time.Hour)
	if err != nil {
		log.Fatalf("签发令牌失败: %v", err)
	}
	fmt.Println(token)

	if *group == "" {
		return
	}
	if cfg.Database.Driver == util.DriverMemory {
		log.Fatal("内存存储不支持从脚本添加成员，请调用 /api/teacher/groups/:id/members")
	}

	db, err := database.InitDB(&cfg.Database, false, false)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	memberRole := r
	if memberRole == model.Admin {
		memberRole = model.Teacher
	}
	members := repository.NewMembershipRepository(db)
	if err := members.AddMember(context.Background(), &model.GroupMember{GroupID: *group, UserID: *userID, Role: memberRole}); err != nil {
		log.Fatalf("添加成员失败: %v", err)
	}
	log.Printf("用户 %d 已加入小组 %s (%s)", *userID, *group, memberRole)
}
